package provisioning

import "fmt"

// ProvisionError is the error surfaced for provisioning failures: missing
// configuration, an instance that cannot be located, or a state wait that
// ran out of time. It wraps the underlying provider error when there is one.
type ProvisionError struct {
	Msg string
	Err error
}

func (e *ProvisionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

func provisionErrorf(format string, args ...interface{}) *ProvisionError {
	return &ProvisionError{Msg: fmt.Sprintf(format, args...)}
}

// AddressNotFoundError is returned when none of an instance's network
// attachments exposes a public or private address.
type AddressNotFoundError struct {
	InstanceID string
}

func (e *AddressNotFoundError) Error() string {
	return fmt.Sprintf("no public or private address found for instance %s", e.InstanceID)
}
