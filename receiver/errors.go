package receiver

import "fmt"

// SenderKeyNotFoundError reports that the host could not resolve the
// sender's public key. Terminal for the receive operation; retry policy
// belongs to the transport layer.
type SenderKeyNotFoundError struct {
	AuthorID string
}

func (e SenderKeyNotFoundError) Error() string {
	if e.AuthorID == "" {
		return "sender key not found"
	}
	return fmt.Sprintf("sender key not found for %s", e.AuthorID)
}

// Is enables errors.Is matching on SenderKeyNotFoundError.
func (e SenderKeyNotFoundError) Is(target error) bool {
	_, ok := target.(SenderKeyNotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*SenderKeyNotFoundError)
	return ok
}

// ErrSenderKeyNotFound is the sentinel error for unresolvable senders.
var ErrSenderKeyNotFound = SenderKeyNotFoundError{}

// RecipientKeyNotFoundError reports that the host could not resolve the
// recipient's private key for an encrypted envelope.
type RecipientKeyNotFoundError struct {
	RecipientID string
}

func (e RecipientKeyNotFoundError) Error() string {
	if e.RecipientID == "" {
		return "recipient key not found"
	}
	return fmt.Sprintf("recipient key not found for %s", e.RecipientID)
}

// Is enables errors.Is matching on RecipientKeyNotFoundError.
func (e RecipientKeyNotFoundError) Is(target error) bool {
	_, ok := target.(RecipientKeyNotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*RecipientKeyNotFoundError)
	return ok
}

// ErrRecipientKeyNotFound is the sentinel error for unresolvable recipients.
var ErrRecipientKeyNotFound = RecipientKeyNotFoundError{}
