package domain

const (
	WalletStatusActive  = "active"
	WalletStatusRevoked = "revoked"
	WalletStatusExpired = "expired"
)

const (
	PlatformApple  = "apple"
	PlatformGoogle = "google"
	PlatformJSON   = "json"
)

// Station hub event types.
const (
	EventPassPrepared       = "pass_prepared"
	EventPassClaimed        = "pass_claimed"
	EventTransactionSettled = "transaction_settled"
)

const (
	StationOnline  = "online"
	StationOffline = "offline"
)

// GuestCustomerName labels transactions recorded without a loyalty card.
const GuestCustomerName = "Guest checkout"
