package timetrcutil

// FlattenErrors converts errors to their string forms, skipping nils. It
// returns nil if there are no non-nil errors.
func FlattenErrors(errs ...error) []string {
	var strs []string
	for _, err := range errs {
		if err == nil {
			continue
		}
		strs = append(strs, err.Error())
	}
	return strs
}
