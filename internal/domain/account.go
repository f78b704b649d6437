package domain

// Account is the platform user record. The intake service only ever reads
// accounts; email and full name may both be unset.
type Account struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}
