package backup

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
)

// IMAPUploader appends each snapshot as a message with a JSON attachment to
// a mailbox, so the copy survives the bot host.
type IMAPUploader struct {
	Address  string
	Username string
	Password string
	Mailbox  string
	From     string
	// Insecure dials without TLS. Only meant for local test servers.
	Insecure bool
	Logger   *zap.Logger

	mu sync.Mutex
}

func (u *IMAPUploader) logger() *zap.Logger {
	if u.Logger == nil {
		return zap.NewNop()
	}
	return u.Logger
}

func (u *IMAPUploader) connect() (*client.Client, error) {
	var (
		conn *client.Client
		err  error
	)
	if u.Insecure {
		conn, err = client.Dial(u.Address)
	} else {
		conn, err = client.DialTLS(u.Address, nil)
	}
	if err != nil {
		return nil, err
	}
	if err := conn.Login(u.Username, u.Password); err != nil {
		conn.Logout()
		return nil, err
	}
	return conn, nil
}

func (u *IMAPUploader) mailbox() string {
	if u.Mailbox == "" {
		return "INBOX"
	}
	return u.Mailbox
}

// Compose builds the MIME message carrying the snapshot.
func (u *IMAPUploader) Compose(name string, content []byte, date time.Time) (*bytes.Buffer, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetSubject("Pay ledger backup " + name)
	if u.From != "" {
		h.SetAddressList("From", []*mail.Address{{Name: "Paystat Bot", Address: u.From}})
		h.SetAddressList("To", []*mail.Address{{Address: u.From}})
	}

	buf := &bytes.Buffer{}
	mw, err := mail.CreateWriter(buf, h)
	if err != nil {
		return nil, err
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	var th mail.InlineHeader
	th.Set("Content-Type", "text/plain")
	w, err := tw.CreatePart(th)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "Ledger snapshot %v (%d bytes).\n", name, len(content))
	w.Close()
	tw.Close()

	var ah mail.AttachmentHeader
	ah.Set("Content-Type", "application/json")
	ah.SetFilename(name)
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return nil, err
	}
	if _, err := aw.Write(content); err != nil {
		return nil, err
	}
	aw.Close()

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

func (u *IMAPUploader) Upload(ctx context.Context, name string, content []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	msg, err := u.Compose(name, content, time.Now())
	if err != nil {
		return fmt.Errorf("compose backup mail: %w", err)
	}

	conn, err := u.connect()
	if err != nil {
		return fmt.Errorf("connect to %v: %w", u.Address, err)
	}
	defer conn.Logout()

	done := make(chan error, 1)
	go func() {
		done <- conn.Append(u.mailbox(), []string{imap.SeenFlag}, time.Now(), msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("append to %v: %w", u.mailbox(), err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	u.logger().Info("backup mailed", zap.String("file", name), zap.String("mailbox", u.mailbox()))
	return nil
}

// Check logs in and lists the mailboxes, failing when the target mailbox
// does not exist.
func (u *IMAPUploader) Check() ([]string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	conn, err := u.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- conn.List("", "*", mailboxes)
	}()
	var names []string
	found := false
	for m := range mailboxes {
		names = append(names, m.Name)
		if m.Name == u.mailbox() {
			found = true
		}
	}
	if err := <-done; err != nil {
		return names, err
	}
	if !found {
		return names, fmt.Errorf("mailbox %q not found", u.mailbox())
	}
	return names, nil
}
