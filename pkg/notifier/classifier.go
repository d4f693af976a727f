package notifier

// EmailPolicy describes whether a notification type may trigger the email
// channel. It is a static property of the type, independent of user settings.
type EmailPolicy int

const (
	// EmailNever types are in-app only. No template exists for them and no
	// email is ever attempted.
	EmailNever EmailPolicy = iota

	// EmailConditional types email only when the user has opted in
	// (settings.Email and settings.CourseUpdates both enabled).
	EmailConditional

	// EmailAlways types are critical or transactional and email regardless
	// of the user's toggles. For users with no stored settings record only
	// the defaultEmailTypes subset fires.
	EmailAlways
)

// emailPolicies is the fixed rule table mapping types to email behavior.
// Types absent from the table fall through to EmailNever (the zero value).
var emailPolicies = map[Type]EmailPolicy{
	TypePaymentConfirmed: EmailAlways,
	TypePaymentFailed:    EmailAlways,
	TypeSecurityAlert:    EmailAlways,
	TypeAccountSuspended: EmailAlways,
	TypeCourseApproved:   EmailAlways,
	TypeCourseRejected:   EmailAlways,
	TypeAssignmentGraded: EmailAlways,
	TypeCertificateReady: EmailAlways,
	TypeRefundProcessed:  EmailAlways,
	TypePayoutProcessed:  EmailAlways,

	TypeNewStudentEnrolled:    EmailConditional,
	TypeCourseCompleted:       EmailConditional,
	TypeSupportTicketResolved: EmailConditional,
}

// defaultEmailTypes is the reduced set that still emails for users without
// a stored settings record. Only strictly transactional and security events
// qualify; the rest of the always-email set requires the user to exist in
// the settings store.
var defaultEmailTypes = map[Type]struct{}{
	TypePaymentConfirmed: {},
	TypePaymentFailed:    {},
	TypeSecurityAlert:    {},
	TypeAccountSuspended: {},
	TypeCertificateReady: {},
}

// Classify returns the email policy for a notification type.
// It is a pure lookup with no failure mode.
func Classify(t Type) EmailPolicy {
	return emailPolicies[t]
}

// emailsByDefault reports whether the type emails for users with no stored
// settings record.
func emailsByDefault(t Type) bool {
	_, ok := defaultEmailTypes[t]
	return ok
}
