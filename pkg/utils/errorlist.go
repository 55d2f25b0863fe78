package utils

type errorList struct {
	errors []error
}

func NewErrorList(errors []error) error {
	return &errorList{errors: errors}
}

func NewErrorListOrNil(errors []error) error {
	if len(errors) == 0 {
		return nil
	}
	return NewErrorList(errors)
}

func (el *errorList) Error() string {
	s := ""
	for _, err := range el.errors {
		if len(s) != 0 {
			s += "\n"
		}
		s += err.Error()
	}
	return s
}
