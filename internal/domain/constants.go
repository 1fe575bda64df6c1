package domain

// InterestStatus is the lifecycle state of an interest record.
type InterestStatus string

const (
	InterestPending  InterestStatus = "pending"
	InterestAccepted InterestStatus = "accepted"
	InterestRejected InterestStatus = "rejected"
)

// ActiveSentStatuses count against the sender's cap.
var ActiveSentStatuses = []InterestStatus{InterestPending, InterestAccepted}

type NotificationType string

const (
	NotifInterestReceived NotificationType = "interest_received"
	NotifInterestAccepted NotificationType = "interest_accepted"
	NotifInterestRejected NotificationType = "interest_rejected"
	NotifInterestCanceled NotificationType = "interest_canceled"
)

// Default capacity caps.
const (
	DefaultMaxActiveSent = 3
	DefaultMaxAccepted   = 3
	DefaultMaxAttempts   = 3
)
