package store

// Subscription marks whether a chat identity (a "building") receives broadcast SMS traffic.
// UserNumber is the unique key; writes replace the whole record.
type Subscription struct {
	UserNumber string `dynamodbav:"user_number"`
	Active     bool   `dynamodbav:"active"`
}

// DefaultScanPageSize bounds how many records one page of an active-identity scan evaluates.
const DefaultScanPageSize int32 = 100
