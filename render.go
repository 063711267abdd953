package automation

import (
	"strconv"
	"strings"
	"time"
)

// longDateFormat is how date-valued fields appear in outgoing mail,
// e.g. "April 9, 2025".
const longDateFormat = "January 2, 2006"

// Links holds the fixed studio urls substituted for the static bracket
// tokens. The gallery link always comes from the data bag instead.
type Links struct {
	Booking     string
	Portfolio   string
	Payment     string
	ContactInfo string
}

// Renderer turns a template plus a data bag into a final subject and body.
// It is pure: identical inputs produce byte-identical output.
//
// Resolution happens in three passes over plain text, nothing is ever
// evaluated as code:
//
//  1. {{client.x}} / {{job.x}} / {{payment.x}} tokens via a flat field
//     lookup, empty string when the record or field is missing
//  2. single-level {{#if scope.field === 'literal'}}A{{else}}B{{/if}}
//     blocks, string equality only; an unknowable field keeps the if branch
//  3. static bracket tokens ([GALLERY_LINK], [BOOKING_LINK], ...)
//
// Tokens outside those shapes pass through verbatim so templates can carry
// placeholders this engine does not know about yet.
type Renderer struct {
	links Links
}

func NewRenderer(links Links) *Renderer {
	return &Renderer{links: links}
}

// Render resolves both parts of the template against the bag.
func (r *Renderer) Render(tpl EmailTemplate, bag DataBag) (subject, body string) {
	return r.RenderText(tpl.Subject, bag), r.RenderText(tpl.Body, bag)
}

// RenderText resolves a single template string against the bag.
func (r *Renderer) RenderText(text string, bag DataBag) string {
	text = substituteScoped(text, bag)
	text = resolveConditionals(text, bag)
	return r.substituteStatic(text, bag)
}

var placeholderScopes = map[string]bool{
	"client":  true,
	"job":     true,
	"payment": true,
}

func substituteScoped(text string, bag DataBag) string {
	var out strings.Builder
	out.Grow(len(text))

	for {
		start := strings.Index(text, "{{")
		if start < 0 {
			out.WriteString(text)
			break
		}

		end := strings.Index(text[start:], "}}")
		if end < 0 {
			out.WriteString(text)
			break
		}
		end += start

		token := text[start+2 : end]
		out.WriteString(text[:start])

		scope, _, ok := splitFieldPath(token)
		if ok && placeholderScopes[scope] {
			value, _ := lookupField(bag, token)
			out.WriteString(value)
		} else {
			// Conditional syntax or a future placeholder, leave verbatim.
			out.WriteString(text[start : end+2])
		}

		text = text[end+2:]
	}

	return out.String()
}

const (
	ifOpen   = "{{#if "
	elseTag  = "{{else}}"
	ifClose  = "{{/if}}"
	tagClose = "}}"
)

func resolveConditionals(text string, bag DataBag) string {
	var out strings.Builder
	out.Grow(len(text))

	for {
		start := strings.Index(text, ifOpen)
		if start < 0 {
			out.WriteString(text)
			break
		}

		headerEnd := strings.Index(text[start:], tagClose)
		if headerEnd < 0 {
			out.WriteString(text)
			break
		}
		headerEnd += start

		bodyStart := headerEnd + len(tagClose)
		closeIdx := strings.Index(text[bodyStart:], ifClose)
		if closeIdx < 0 {
			out.WriteString(text)
			break
		}
		closeIdx += bodyStart

		header := text[start+len(ifOpen) : headerEnd]
		block := text[bodyStart:closeIdx]

		ifBranch, elseBranch := block, ""
		if elseIdx := strings.Index(block, elseTag); elseIdx >= 0 {
			ifBranch = block[:elseIdx]
			elseBranch = block[elseIdx+len(elseTag):]
		}

		out.WriteString(text[:start])

		field, literal, ok := parseEqualsHeader(header)
		if !ok {
			// Not the supported field === 'literal' shape, keep the
			// whole block untouched.
			out.WriteString(text[start : closeIdx+len(ifClose)])
		} else if value, known := lookupField(bag, field); !known || value == literal {
			// An unknowable field keeps the if branch.
			out.WriteString(ifBranch)
		} else {
			out.WriteString(elseBranch)
		}

		text = text[closeIdx+len(ifClose):]
	}

	return out.String()
}

// parseEqualsHeader parses the single supported condition shape,
// scope.field === 'literal'.
func parseEqualsHeader(header string) (field, literal string, ok bool) {
	parts := strings.SplitN(header, "===", 2)
	if len(parts) != 2 {
		return "", "", false
	}

	field = strings.TrimSpace(parts[0])
	if _, _, ok := splitFieldPath(field); !ok {
		return "", "", false
	}

	literal = strings.TrimSpace(parts[1])
	if len(literal) < 2 || literal[0] != '\'' || literal[len(literal)-1] != '\'' {
		return "", "", false
	}

	return field, literal[1 : len(literal)-1], true
}

func (r *Renderer) substituteStatic(text string, bag DataBag) string {
	galleryUrl := ""
	if bag.Gallery != nil {
		galleryUrl = bag.Gallery.Url
	}

	replacer := strings.NewReplacer(
		"[GALLERY_LINK]", galleryUrl,
		"[BOOKING_LINK]", r.links.Booking,
		"[PORTFOLIO_LINK]", r.links.Portfolio,
		"[PAYMENT_LINK]", r.links.Payment,
		"[CONTACT_INFO]", r.links.ContactInfo,
	)

	return replacer.Replace(text)
}

func splitFieldPath(path string) (scope, field string, ok bool) {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	if strings.ContainsAny(parts[1], " .{}") {
		return "", "", false
	}

	return parts[0], parts[1], true
}

// lookupField resolves a scope.field path against the bag. The second
// return is false when the record itself is absent; a present record with
// an unrecognized or empty field resolves to the empty string.
func lookupField(bag DataBag, path string) (string, bool) {
	scope, field, ok := splitFieldPath(path)
	if !ok {
		return "", false
	}

	switch scope {
	case "client":
		if bag.Client == nil {
			return "", false
		}
		return clientField(bag.Client, field), true

	case "job":
		if bag.Job == nil {
			return "", false
		}
		return jobField(bag.Job, field), true

	case "payment":
		if bag.Payment == nil {
			return "", false
		}
		return paymentField(bag.Payment, field), true

	case "gallery":
		if bag.Gallery == nil {
			return "", false
		}
		return galleryField(bag.Gallery, field), true

	default:
		return "", false
	}
}

func clientField(c *Client, field string) string {
	switch field {
	case "firstName":
		return c.FirstName
	case "lastName":
		return c.LastName
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	case "partnerName":
		return c.PartnerName
	case "galleryPassword":
		return c.GalleryPassword
	default:
		return ""
	}
}

func jobField(j *Job, field string) string {
	switch field {
	case "type":
		return j.Type
	case "date":
		return formatLongDate(j.Date)
	case "startTime":
		return j.StartTime
	case "endTime":
		return j.EndTime
	case "location":
		return j.Location
	case "locationNotes":
		return j.LocationNotes
	case "status":
		return j.Status
	default:
		return ""
	}
}

func paymentField(p *Payment, field string) string {
	switch field {
	case "amount":
		return strconv.FormatFloat(p.Amount, 'f', 2, 64)
	case "dueDate":
		return formatLongDate(p.DueDate)
	case "invoiceId":
		return p.InvoiceId
	case "status":
		return p.Status
	default:
		return ""
	}
}

func galleryField(g *Gallery, field string) string {
	switch field {
	case "url":
		return g.Url
	case "password":
		return g.Password
	default:
		return ""
	}
}

func formatLongDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(longDateFormat)
}
