package core

// Logger is any service that can log messages and report errors.
// args are errors, map[string]interface{} extras or the request's Person.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the editor behind a logged event.
type Person struct {
	ID    string
	Email string
}
