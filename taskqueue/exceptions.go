package taskqueue

import "errors"

// Kinded is implemented by errors that know their own exception kind for
// task-queue accounting purposes; the root resolver package's Outcome
// errors implement it so background-task exceptions are categorized
// without taskqueue needing to import the resolver package.
type Kinded interface {
	error
	TaskExceptionKind() ExceptionKind
}

// ClassifyException maps a background-task error to one of
// {generic, domain-error, serv-fail, policy-hit, unknown}, per spec.md §4.3.
func ClassifyException(err error) ExceptionKind {
	if err == nil {
		return ExGeneric
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.TaskExceptionKind()
	}
	return ExGeneric
}
