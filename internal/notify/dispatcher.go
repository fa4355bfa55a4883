// Package notify renders and delivers customer emails: ticket confirmations
// with an inline QR code and password reset codes.
package notify

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/valyala/fasttemplate"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Kind selects the template and subject of an email.
type Kind string

const (
	KindTicket Kind = "ticket"
	KindOTP    Kind = "otp"
)

// Fields are the values substituted into #{field} placeholders.
type Fields map[string]string

// QRName is the inline attachment name referenced by ticket emails.
const QRName = "ticket-qr.png"

var ticketRequired = []string{"transactionId", "movie", "theatre", "date", "time", "seats", "amount", "name"}

var (
	// ErrMissingFields is returned before any delivery when a ticket lacks
	// required fields.
	ErrMissingFields = errors.New("missing required email fields")
	ErrUnknownKind   = errors.New("unknown email kind")
)

// Dispatcher renders templates and hands messages to a Mailer.
type Dispatcher struct {
	mailer    Mailer
	log       *zap.Logger
	templates map[Kind]string
}

// NewDispatcher loads the embedded templates.
func NewDispatcher(mailer Mailer, log *zap.Logger) (*Dispatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{mailer: mailer, log: log, templates: map[Kind]string{}}
	for _, k := range []Kind{KindTicket, KindOTP} {
		b, err := templateFS.ReadFile("templates/" + string(k) + ".html")
		if err != nil {
			return nil, fmt.Errorf("load %s template: %w", k, err)
		}
		d.templates[k] = string(b)
	}
	return d, nil
}

// Send validates fields, renders the template for kind and makes one
// delivery attempt to recipient.
func (d *Dispatcher) Send(ctx context.Context, kind Kind, recipient string, f Fields) error {
	tpl, ok := d.templates[kind]
	if !ok {
		return ErrUnknownKind
	}
	msg := Message{To: recipient}
	switch kind {
	case KindTicket:
		if missing := missingFields(f, ticketRequired); len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
		}
		f = formatTicketFields(f)
		if f["transactionId"] != "" && f["movie"] != "" {
			png, err := ticketQR(f)
			if err != nil {
				d.log.Warn("qr generation failed", zap.String("transaction_id", f["transactionId"]), zap.Error(err))
			} else {
				msg.Inline = append(msg.Inline, Inline{Name: QRName, Data: png})
				f["qrCode"] = "cid:" + QRName
			}
		}
		msg.Subject = "Your Movie Tickets for " + f["movie"]
	case KindOTP:
		msg.Subject = "Your password reset code"
	}
	msg.HTML = Render(tpl, f)

	if err := d.mailer.Send(ctx, msg); err != nil {
		d.log.Error("email delivery failed", zap.String("kind", string(kind)), zap.String("to", recipient), zap.Error(err))
		return err
	}
	d.log.Info("email sent", zap.String("kind", string(kind)), zap.String("to", recipient))
	return nil
}

// NotifyBooking emails the ticket for a confirmed booking.
func (d *Dispatcher) NotifyBooking(ctx context.Context, c model.BookingConfirmation) error {
	return d.Send(ctx, KindTicket, c.UserEmail, TicketFields(c))
}

// SendOTP emails a password reset code.
func (d *Dispatcher) SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error {
	return d.Send(ctx, KindOTP, to, Fields{
		"name":      name,
		"otp":       code,
		"expiresIn": fmt.Sprintf("%d minutes", int(ttl.Minutes())),
	})
}

// TicketFields maps a confirmation onto template fields.  Date and time
// stay raw here; Send formats them.
func TicketFields(c model.BookingConfirmation) Fields {
	seats := make([]string, len(c.Seats))
	for i, s := range c.Seats {
		seats[i] = strconv.Itoa(s)
	}
	f := Fields{
		"bookingId":     c.BookingID,
		"transactionId": c.TransactionID,
		"userId":        c.UserID,
		"name":          c.UserName,
		"movie":         c.MovieTitle,
		"poster":        c.PosterURL,
		"theatre":       c.TheatreName,
		"date":          c.Date,
		"time":          c.Time,
		"seats":         strings.Join(seats, ", "),
		"rawSeats":      strings.Join(seats, ","),
	}
	if c.AmountCents > 0 {
		f["amount"] = fmt.Sprintf("£%d.%02d", c.AmountCents/100, c.AmountCents%100)
	}
	return f
}

// Render substitutes #{field} placeholders.  Values are HTML escaped;
// placeholders without a value are left untouched.
func Render(tpl string, f Fields) string {
	t := fasttemplate.New(tpl, "#{", "}")
	return t.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		if v, ok := f[tag]; ok {
			return w.Write([]byte(html.EscapeString(v)))
		}
		return w.Write([]byte("#{" + tag + "}"))
	})
}

func missingFields(f Fields, required []string) []string {
	var out []string
	for _, k := range required {
		if strings.TrimSpace(f[k]) == "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// formatTicketFields returns a copy with display date and time.  Values
// that do not parse are kept as given.
func formatTicketFields(in Fields) Fields {
	out := make(Fields, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	out["rawDate"], out["rawTime"] = in["date"], in["time"]
	if d, err := time.Parse("2006-01-02", in["date"]); err == nil {
		out["date"] = d.Format("Monday, 2 January 2006")
	}
	if t, err := time.Parse("15:04", in["time"]); err == nil {
		out["time"] = t.Format("3:04 PM")
	}
	return out
}

type qrPayload struct {
	BookingID     string `json:"bookingId"`
	TransactionID string `json:"transactionId"`
	UserID        string `json:"userId"`
	Movie         string `json:"movie"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Seats         string `json:"seats"`
}

func ticketQR(f Fields) ([]byte, error) {
	seats := f["rawSeats"]
	if seats == "" {
		seats = f["seats"]
	}
	body, err := json.Marshal(qrPayload{
		BookingID:     f["bookingId"],
		TransactionID: f["transactionId"],
		UserID:        f["userId"],
		Movie:         f["movie"],
		Date:          f["rawDate"],
		Time:          f["rawTime"],
		Seats:         seats,
	})
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(string(body), qrcode.Medium, 256)
}
