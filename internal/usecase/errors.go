package usecase

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrConflict string

func (e ErrConflict) Error() string { return string(e) }

type ErrBadRequest string

func (e ErrBadRequest) Error() string { return string(e) }

// ErrPayment marks a payment-processor failure during settlement. Nothing
// has been refunded when this is returned.
type ErrPayment string

func (e ErrPayment) Error() string { return string(e) }
