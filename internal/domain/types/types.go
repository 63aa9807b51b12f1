package types

// BookingStatus is the booking lifecycle state.
//
// PENDING -> ACCEPTED -> IN_PROGRESS -> COMPLETED
// PENDING and ACCEPTED may also go to CANCELLED.
type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusAccepted   BookingStatus = "ACCEPTED"
	StatusInProgress BookingStatus = "IN_PROGRESS"
	StatusCompleted  BookingStatus = "COMPLETED"
	StatusCancelled  BookingStatus = "CANCELLED"
)

func (s BookingStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transition is possible from s.
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Trackable reports whether position updates are accepted for a booking in s.
func (s BookingStatus) Trackable() bool {
	return s == StatusAccepted || s == StatusInProgress
}

// ActorRole is the closed set of caller roles known to the core.
type ActorRole string

const (
	RoleRequester    ActorRole = "REQUESTER"
	RoleProfessional ActorRole = "PROFESSIONAL"
	RoleAdmin        ActorRole = "ADMIN"
)

func (r ActorRole) String() string {
	return string(r)
}

func (r ActorRole) Valid() bool {
	switch r {
	case RoleRequester, RoleProfessional, RoleAdmin:
		return true
	}
	return false
}

// VerificationStatus of a professional's documents. Only VERIFIED
// professionals are eligible for matching.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)
