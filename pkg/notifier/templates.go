package notifier

import (
	"fmt"
	"html"
	"strings"
)

// RenderedEmail is a rendered subject/body pair for one notification.
type RenderedEmail struct {
	Subject  string
	BodyHTML string
}

// renderEmail maps a notification type to its email template and renders it
// from the notification payload. The second return value is false for types
// with no mapped template; no email is attempted for them.
func renderEmail(n *Notification, rcpt Recipient) (RenderedEmail, bool) {
	greeting := "Hi"
	if rcpt.Name != "" {
		greeting = "Hi " + html.EscapeString(rcpt.Name)
	}

	switch n.Type {
	case TypePaymentConfirmed:
		return layout("Payment confirmed",
			greeting,
			fmt.Sprintf("Your payment of %s for %q was successful.",
				esc(n.DataString("amount")), esc(n.DataString("course_name"))),
			link(n.ActionURL, "View your receipt"),
		), true

	case TypePaymentFailed:
		return layout("Payment failed",
			greeting,
			fmt.Sprintf("Your payment of %s for %q could not be processed. Please update your payment method and try again.",
				esc(n.DataString("amount")), esc(n.DataString("course_name"))),
			link(n.ActionURL, "Retry payment"),
		), true

	case TypeSecurityAlert:
		return layout("Security alert on your account",
			greeting,
			esc(n.Message),
			"If this wasn't you, change your password immediately.",
			link(n.ActionURL, "Review account activity"),
		), true

	case TypeAccountSuspended:
		return layout("Your account has been suspended",
			greeting,
			esc(n.Message),
			fmt.Sprintf("Reason: %s", esc(n.DataString("reason"))),
			"Contact support if you believe this is a mistake.",
		), true

	case TypeCertificateReady:
		return layout("Your certificate is ready",
			greeting,
			fmt.Sprintf("Congratulations! Your certificate for %q is ready to download.",
				esc(n.DataString("course_name"))),
			link(n.ActionURL, "Download certificate"),
		), true

	case TypeCourseApproved:
		return layout("Your course has been approved",
			greeting,
			fmt.Sprintf("Great news! %q passed review and is now live on the marketplace.",
				esc(n.DataString("course_name"))),
			link(n.ActionURL, "View your course"),
		), true

	case TypeCourseRejected:
		return layout("Your course needs changes",
			greeting,
			fmt.Sprintf("%q did not pass review.", esc(n.DataString("course_name"))),
			fmt.Sprintf("Reviewer notes: %s", esc(n.DataString("review_notes"))),
			link(n.ActionURL, "Edit and resubmit"),
		), true

	case TypeAssignmentGraded:
		return layout("Your assignment has been graded",
			greeting,
			fmt.Sprintf("Your submission for %q in %q was graded: %s.",
				esc(n.DataString("assignment_name")), esc(n.DataString("course_name")),
				esc(n.DataString("grade"))),
			link(n.ActionURL, "See feedback"),
		), true

	case TypeRefundProcessed:
		return layout("Refund processed",
			greeting,
			fmt.Sprintf("Your refund of %s for %q has been processed. It may take a few business days to appear on your statement.",
				esc(n.DataString("amount")), esc(n.DataString("course_name"))),
		), true

	case TypePayoutProcessed:
		return layout("Payout on the way",
			greeting,
			fmt.Sprintf("Your payout of %s has been sent to your account ending in %s.",
				esc(n.DataString("amount")), esc(n.DataString("account_last4"))),
			link(n.ActionURL, "View payout details"),
		), true

	case TypeNewStudentEnrolled:
		return layout("New student enrolled",
			greeting,
			fmt.Sprintf("%s just enrolled in %q.",
				esc(n.DataString("student_name")), esc(n.DataString("course_name"))),
			link(n.ActionURL, "View course dashboard"),
		), true

	case TypeCourseCompleted:
		return layout("Course completed",
			greeting,
			fmt.Sprintf("You finished %q. Nice work!", esc(n.DataString("course_name"))),
			link(n.ActionURL, "Explore more courses"),
		), true

	case TypeSupportTicketResolved:
		return layout("Your support ticket has been resolved",
			greeting,
			fmt.Sprintf("Ticket #%s has been marked resolved.", esc(n.DataString("ticket_id"))),
			esc(n.Message),
			link(n.ActionURL, "View ticket"),
		), true

	default:
		// In-app only type; no email template.
		return RenderedEmail{}, false
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}

// link renders a call-to-action anchor, or nothing when no URL is set.
func link(url, label string) string {
	if url == "" {
		return ""
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(label))
}

// layout wraps paragraphs in the shared transactional email shell. Inline
// styles only, since email clients strip stylesheets.
func layout(subject string, paragraphs ...string) RenderedEmail {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Helvetica,Arial,sans-serif;max-width:600px;margin:0 auto;padding:24px">`)
	fmt.Fprintf(&b, `<h2 style="color:#1a1a2e">%s</h2>`, html.EscapeString(subject))
	for _, p := range paragraphs {
		if p == "" {
			continue
		}
		fmt.Fprintf(&b, `<p style="color:#444;line-height:1.5">%s</p>`, p)
	}
	b.WriteString(`</div>`)
	return RenderedEmail{Subject: subject, BodyHTML: b.String()}
}
