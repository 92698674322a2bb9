package provider

import (
	"context"
	"fmt"

	accountdomain "inboxpilot-backend/internal/account/domain"
	accountrepo "inboxpilot-backend/internal/account/repository"
	"inboxpilot-backend/pkg/gmail"

	"golang.org/x/oauth2"
)

// Handle is a provider-bound connection used to execute one action against a
// specific account's mailbox
type Handle interface {
	Archive(ctx context.Context, messageID string) error
	ApplyLabel(ctx context.Context, messageID, labelID string) error
	Trash(ctx context.Context, messageID string) error
	MarkRead(ctx context.Context, messageID string) error
}

// Factory creates provider handles bound to an account's credentials
type Factory struct {
	gmailService *gmail.Service
	accountRepo  accountrepo.AccountRepository
}

func NewFactory(gmailService *gmail.Service, accountRepo accountrepo.AccountRepository) *Factory {
	return &Factory{
		gmailService: gmailService,
		accountRepo:  accountRepo,
	}
}

// CreateHandle resolves the account's credentials and returns a handle for the
// given provider
func (f *Factory) CreateHandle(ctx context.Context, accountID string, p accountdomain.Provider) (Handle, error) {
	account, err := f.accountRepo.FindByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s not found", accountID)
	}

	switch p {
	case accountdomain.ProviderGoogle:
		return &gmailHandle{
			svc:     f.gmailService,
			account: account,
			onTokenRefresh: func(token *oauth2.Token) error {
				return f.accountRepo.UpdateTokens(account.ID, token.AccessToken, token.RefreshToken)
			},
		}, nil
	case accountdomain.ProviderOutlook:
		return nil, fmt.Errorf("outlook action execution is not supported yet")
	default:
		return nil, fmt.Errorf("unknown provider: %s", p)
	}
}

// gmailHandle executes mailbox mutations through the Gmail API. Label
// modifications are idempotent on Gmail's side, so re-executing the same
// action is safe.
type gmailHandle struct {
	svc            *gmail.Service
	account        *accountdomain.Account
	onTokenRefresh gmail.TokenUpdateFunc
}

func (h *gmailHandle) Archive(ctx context.Context, messageID string) error {
	return h.svc.ArchiveMessage(ctx, h.account.AccessToken, h.account.RefreshToken, messageID, h.onTokenRefresh)
}

func (h *gmailHandle) ApplyLabel(ctx context.Context, messageID, labelID string) error {
	return h.svc.ApplyLabel(ctx, h.account.AccessToken, h.account.RefreshToken, messageID, labelID, h.onTokenRefresh)
}

func (h *gmailHandle) Trash(ctx context.Context, messageID string) error {
	return h.svc.TrashMessage(ctx, h.account.AccessToken, h.account.RefreshToken, messageID, h.onTokenRefresh)
}

func (h *gmailHandle) MarkRead(ctx context.Context, messageID string) error {
	return h.svc.MarkMessageRead(ctx, h.account.AccessToken, h.account.RefreshToken, messageID, h.onTokenRefresh)
}
