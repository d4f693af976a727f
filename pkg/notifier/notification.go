package notifier

import (
	"time"
)

// Type identifies the domain event a notification reports. It drives both
// channel classification and email template selection.
type Type string

const (
	TypePaymentConfirmed      Type = "payment_confirmed"
	TypePaymentFailed         Type = "payment_failed"
	TypeSecurityAlert         Type = "security_alert"
	TypeAccountSuspended      Type = "account_suspended"
	TypeCertificateReady      Type = "certificate_ready"
	TypeCourseApproved        Type = "course_approved"
	TypeCourseRejected        Type = "course_rejected"
	TypeAssignmentGraded      Type = "assignment_graded"
	TypeRefundProcessed       Type = "refund_processed"
	TypePayoutProcessed       Type = "payout_processed"
	TypeNewStudentEnrolled    Type = "new_student_enrolled"
	TypeCourseCompleted       Type = "course_completed"
	TypeSupportTicketResolved Type = "support_ticket_resolved"
	TypeContentRemoved        Type = "content_removed"
	TypeNewAnnouncement       Type = "new_announcement"
	TypeDiscussionReply       Type = "new_discussion_reply"
	TypeCourseUpdated         Type = "course_updated"
)

// Priority represents the notification priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Notification is the persisted record of one event communicated to one user.
// All fields except the delivery/read flags are immutable after creation.
// Delivered and Read only ever transition forward: once true, they never
// revert, and each flag is paired with its timestamp (flag set implies
// timestamp set).
type Notification struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Type        Type           `json:"type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Priority    Priority       `json:"priority"`
	Data        map[string]any `json:"data,omitempty"`
	ActionURL   string         `json:"action_url,omitempty"`
	Delivered   bool           `json:"is_delivered"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	Read        bool           `json:"is_read"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// MarkDelivered sets the delivered flag with the current timestamp.
// Calling it on an already delivered notification is a no-op.
func (n *Notification) MarkDelivered() {
	if n.Delivered {
		return
	}
	n.Delivered = true
	now := time.Now()
	n.DeliveredAt = &now
}

// MarkRead sets the read flag with the current timestamp.
// Calling it on an already read notification is a no-op, so ReadAt is
// stable after the first call.
func (n *Notification) MarkRead() {
	if n.Read {
		return
	}
	n.Read = true
	now := time.Now()
	n.ReadAt = &now
}

// DataString extracts a string value from the opaque payload.
// Returns the empty string when the key is absent or not a string.
func (n *Notification) DataString(key string) string {
	if n.Data == nil {
		return ""
	}
	if v, ok := n.Data[key].(string); ok {
		return v
	}
	return ""
}
