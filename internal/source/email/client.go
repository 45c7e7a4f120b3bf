package email

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mailwatch/internal/errs"
	"github.com/nhle/mailwatch/internal/model"
	"github.com/nhle/mailwatch/internal/source"
)

// IMAPSource implements source.Source for an IMAP mailbox using go-imap v2.
type IMAPSource struct {
	server   model.ServerConfig
	username string
	password string
	logger   *slog.Logger
}

// NewIMAPSource creates a new IMAP source for the given server and account.
func NewIMAPSource(
	server model.ServerConfig,
	account model.AccountConfig,
	logger *slog.Logger,
) *IMAPSource {
	return &IMAPSource{
		server:   server,
		username: account.Address,
		password: account.Password,
		logger:   logger,
	}
}

// Connect establishes a connection to the IMAP server and authenticates.
// The caller is responsible for closing the returned session.
func (c *IMAPSource) Connect(ctx context.Context) (source.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := c.server.Address()

	var client *imapclient.Client
	var err error

	if c.server.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, errs.New(errs.Connection, "connecting to IMAP "+addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Close()
		return nil, errs.New(errs.Auth,
			fmt.Sprintf("IMAP login for %s", c.username), err)
	}

	c.logger.Debug("IMAP session opened", "server", addr, "user", c.username)
	return &imapSession{client: client, logger: c.logger}, nil
}

// imapSession is an authenticated IMAP connection. Ids are UIDs.
type imapSession struct {
	client *imapclient.Client
	folder string
	logger *slog.Logger
}

func (s *imapSession) Select(ctx context.Context, folder string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.Select(folder, nil).Wait(); err != nil {
		return errs.New(errs.Connection, "selecting "+folder, err)
	}
	s.folder = folder
	return nil
}

// SearchUnseen runs UID SEARCH NOT \Seen. UIDs are returned ascending,
// which is arrival order.
func (s *imapSession) SearchUnseen(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	searchData, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, errs.New(errs.Connection, "searching unseen messages in "+s.folder, err)
	}

	uids := searchData.AllUIDs()
	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}
	return ids, nil
}

// Fetch retrieves the full message with BODY.PEEK[] so the \Seen flag is
// left untouched.
func (s *imapSession) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}

	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := s.client.Fetch(imap.UIDSetNum(uid), fetchOpts)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, errs.Newf(errs.Connection, "fetching message", "message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, errs.New(errs.Connection, fmt.Sprintf("collecting message UID %d", uid), err)
	}

	raw := buf.FindBodySection(bodySection)

	if err := fetchCmd.Close(); err != nil {
		return nil, errs.New(errs.Connection, "closing fetch", err)
	}

	return raw, nil
}

// MarkRead adds the \Seen flag to a message.
func (s *imapSession) MarkRead(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uid, err := parseUID(id)
	if err != nil {
		return err
	}

	storeCmd := s.client.Store(imap.UIDSetNum(uid), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)

	if err := storeCmd.Close(); err != nil {
		return errs.New(errs.Connection, fmt.Sprintf("marking UID %d read", uid), err)
	}
	return nil
}

// Close logs out and closes the connection.
func (s *imapSession) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		s.logger.Debug("IMAP logout failed", "error", err)
		return s.client.Close()
	}
	return nil
}

// parseUID converts a string message id to an IMAP UID.
func parseUID(id string) (imap.UID, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid message UID %q: %w", id, err)
	}
	return imap.UID(uid), nil
}
