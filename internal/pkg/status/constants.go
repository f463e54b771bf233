package status

//Status represents transcript status
type Status int

const (
	// Completed - the only status a stored transcript has
	Completed Status = iota + 1
)

var (
	statusName = map[Status]string{Completed: "completed"}
	nameStatus = map[string]Status{"completed": Completed}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}
