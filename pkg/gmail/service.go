package gmail

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that persists refreshed OAuth tokens
type TokenUpdateFunc func(token *oauth2.Token) error

// HistoryMessage is one message surfaced by a history replay
type HistoryMessage struct {
	ID       string
	ThreadID string
	LabelIDs []string
}

// HistoryPage is the result of replaying history from a cursor
type HistoryPage struct {
	Messages []HistoryMessage
	// LatestHistoryID is the newest history id observed; callers persist it as
	// the account's new watermark
	LatestHistoryID uint64
}

type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// GetGmailService creates a Gmail client with the account's tokens
func (s *Service) GetGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	tokenSource := config.TokenSource(ctx, token)

	// Wrap token source to detect refreshes
	wrappedSource := &notifyTokenSource{
		src:      tokenSource,
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}

	return srv, nil
}

// ListHistorySince replays the mailbox change history from the given cursor and
// returns every message added since. Paginates through history.list until the
// provider reports no further pages.
func (s *Service) ListHistorySince(ctx context.Context, accessToken, refreshToken string, startHistoryID uint64, onTokenRefresh TokenUpdateFunc) (*HistoryPage, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	page := &HistoryPage{LatestHistoryID: startHistoryID}
	seen := make(map[string]bool)

	pageToken := ""
	for {
		call := srv.Users.History.List("me").
			StartHistoryId(startHistoryID).
			HistoryTypes("messageAdded").
			LabelId("INBOX")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list history: %v", err)
		}

		for _, h := range resp.History {
			if h.Id > page.LatestHistoryID {
				page.LatestHistoryID = h.Id
			}
			for _, added := range h.MessagesAdded {
				if added.Message == nil || seen[added.Message.Id] {
					continue
				}
				seen[added.Message.Id] = true
				page.Messages = append(page.Messages, HistoryMessage{
					ID:       added.Message.Id,
					ThreadID: added.Message.ThreadId,
					LabelIDs: added.Message.LabelIds,
				})
			}
		}

		// history.list also reports the mailbox's current history id; it can be
		// ahead of every history record when the only changes were ones we
		// filtered out.
		if resp.HistoryId > page.LatestHistoryID {
			page.LatestHistoryID = resp.HistoryId
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return page, nil
}

// GetProfileHistoryID returns the mailbox's current history id, used to seed
// the watermark for accounts that have never synced
func (s *Service) GetProfileHistoryID(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (uint64, error) {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return 0, err
	}

	profile, err := srv.Users.GetProfile("me").Do()
	if err != nil {
		return 0, fmt.Errorf("unable to get profile: %v", err)
	}
	return profile.HistoryId, nil
}

// ArchiveMessage archives a message (removes INBOX label)
func (s *Service) ArchiveMessage(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh TokenUpdateFunc) error {
	return s.modifyMessage(ctx, accessToken, refreshToken, messageID, nil, []string{"INBOX"}, onTokenRefresh)
}

// TrashMessage moves a message to trash
func (s *Service) TrashMessage(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh TokenUpdateFunc) error {
	return s.modifyMessage(ctx, accessToken, refreshToken, messageID, []string{"TRASH"}, nil, onTokenRefresh)
}

// MarkMessageRead removes the UNREAD label from a message
func (s *Service) MarkMessageRead(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh TokenUpdateFunc) error {
	return s.modifyMessage(ctx, accessToken, refreshToken, messageID, nil, []string{"UNREAD"}, onTokenRefresh)
}

// ApplyLabel adds a label to a message
func (s *Service) ApplyLabel(ctx context.Context, accessToken, refreshToken, messageID, labelID string, onTokenRefresh TokenUpdateFunc) error {
	if labelID == "" {
		return errors.New("label id required")
	}
	return s.modifyMessage(ctx, accessToken, refreshToken, messageID, []string{labelID}, nil, onTokenRefresh)
}

func (s *Service) modifyMessage(ctx context.Context, accessToken, refreshToken, messageID string, addLabelIDs, removeLabelIDs []string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	modifyReq := &gmail.ModifyMessageRequest{}
	if len(addLabelIDs) > 0 {
		modifyReq.AddLabelIds = addLabelIDs
	}
	if len(removeLabelIDs) > 0 {
		modifyReq.RemoveLabelIds = removeLabelIDs
	}

	_, err = srv.Users.Messages.Modify("me", messageID, modifyReq).Do()
	if err != nil {
		return fmt.Errorf("unable to modify message labels: %v", err)
	}

	return nil
}

// Watch sets up push notifications for the user's mailbox
func (s *Service) Watch(ctx context.Context, accessToken, refreshToken string, topicName string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	// Stop any existing watch first to avoid "Only one user push notification
	// client allowed" errors; if there was no watch the call just fails and we
	// carry on.
	_ = srv.Users.Stop("me").Do()

	req := &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}

	_, err = srv.Users.Watch("me", req).Do()
	if err != nil {
		return fmt.Errorf("unable to watch mailbox: %v", err)
	}

	return nil
}

// Stop stops push notifications for the user's mailbox
func (s *Service) Stop(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) error {
	srv, err := s.GetGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return err
	}

	err = srv.Users.Stop("me").Do()
	if err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %v", err)
	}

	return nil
}

// ParseHistoryID converts a stored watermark string to a Gmail history id
func ParseHistoryID(watermark string) (uint64, error) {
	id, err := strconv.ParseUint(watermark, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid history watermark %q: %v", watermark, err)
	}
	return id, nil
}

// FormatHistoryID converts a Gmail history id to its stored watermark form
func FormatHistoryID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
