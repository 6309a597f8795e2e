package wager

const (
	operationCreateAccount = "create_account"
	operationPlace         = "place"
	operationCancel        = "cancel"
	operationSettle        = "settle"

	operationStatusOK    = "ok"
	operationStatusError = "error"
	operationStatusNoop  = "noop"
)
