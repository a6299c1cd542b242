package config

type WorkerKeyStruct struct {
	CheatEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	CheatEventsQueue: "cheat_events_queue",
}
