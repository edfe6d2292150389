package judgeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"gitlab.com/judge-dispatch.net/internal/core/ports/primary"
	"gitlab.com/judge-dispatch.net/internal/core/ports/secondary"
	"gitlab.com/judge-dispatch.net/internal/domain"
	"gitlab.com/judge-dispatch.net/internal/static/errs"
)

var _ IJudgeClientService = (*JudgeClientService)(nil)

// JudgeClientService implements IJudgeClientService
type JudgeClientService struct {
	repo         secondary.JudgeClientRepository
	sessions     secondary.SessionStore
	logger       primary.Logger
	generateKey  func() (string, error)
	notifierLock sync.RWMutex
	notifier     func(judgeClientID int)
}

// NewJudgeClientService creates a new judge client service. generateKey produces fresh credentials.
func NewJudgeClientService(
	repo secondary.JudgeClientRepository,
	sessions secondary.SessionStore,
	generateKey func() (string, error),
	logger primary.Logger,
) *JudgeClientService {
	return &JudgeClientService{
		repo:        repo,
		sessions:    sessions,
		generateKey: generateKey,
		logger:      logger,
	}
}

func (s *JudgeClientService) SetDisconnectNotifier(notifier func(judgeClientID int)) {
	s.notifierLock.Lock()
	defer s.notifierLock.Unlock()
	s.notifier = notifier
}

func (s *JudgeClientService) FindByKey(ctx context.Context, key string) (*domain.JudgeClient, error) {
	client, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up judge client: %w", err)
	}
	return client, nil
}

func (s *JudgeClientService) BeginSession(ctx context.Context, client *domain.JudgeClient, connectionID string) error {
	return s.sessions.BeginSession(ctx, client.ID, connectionID)
}

func (s *JudgeClientService) CheckSession(ctx context.Context, client *domain.JudgeClient, connectionID string) (bool, error) {
	return s.sessions.IsSessionValid(ctx, client.ID, connectionID)
}

func (s *JudgeClientService) ReleaseSession(ctx context.Context, client *domain.JudgeClient, connectionID string) error {
	released, err := s.sessions.ReleaseSession(ctx, client.ID, connectionID)
	if err != nil {
		return err
	}
	if !released {
		s.logger.Debug("Session already superseded", "judgeClientId", client.ID, "connectionId", connectionID)
	}
	return nil
}

func (s *JudgeClientService) UpdateSystemInfo(ctx context.Context, client *domain.JudgeClient, info json.RawMessage) error {
	return s.sessions.SetSystemInfo(ctx, client.ID, info)
}

func (s *JudgeClientService) AddJudgeClient(ctx context.Context, name string, allowedHosts []string) (*domain.JudgeClient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("judge client name is required")
	}

	key, err := s.generateKey()
	if err != nil {
		return nil, err
	}

	client := &domain.JudgeClient{
		Name:         name,
		Key:          key,
		AllowedHosts: append([]string{}, allowedHosts...),
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to add judge client: %w", err)
	}

	s.logger.Info("Judge client added", "judgeClientId", client.ID, "name", client.Name)
	return client, nil
}

func (s *JudgeClientService) mustFind(ctx context.Context, id int) (*domain.JudgeClient, error) {
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get judge client: %w", err)
	}
	if client == nil {
		return nil, errs.ErrJudgeClientNotFound
	}
	return client, nil
}

func (s *JudgeClientService) ResetJudgeClientKey(ctx context.Context, id int) (*domain.JudgeClient, error) {
	client, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.generateKey()
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateKey(ctx, id, key); err != nil {
		return nil, fmt.Errorf("failed to reset judge client key: %w", err)
	}
	client.Key = key

	s.disconnect(ctx, id)
	s.logger.Info("Judge client key reset", "judgeClientId", id)
	return client, nil
}

func (s *JudgeClientService) DeleteJudgeClient(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete judge client: %w", err)
	}
	s.disconnect(ctx, id)
	s.logger.Info("Judge client deleted", "judgeClientId", id)
	return nil
}

// disconnect drops the session and closes live connections of the client
func (s *JudgeClientService) disconnect(ctx context.Context, id int) {
	if err := s.sessions.EndSession(ctx, id); err != nil {
		s.logger.Error("Failed to end judge client session", "judgeClientId", id, "error", err)
	}

	s.notifierLock.RLock()
	notifier := s.notifier
	s.notifierLock.RUnlock()
	if notifier != nil {
		notifier(id)
	}
}

func (s *JudgeClientService) info(ctx context.Context, client *domain.JudgeClient, showSensitive bool) (*domain.JudgeClientInfo, error) {
	online, err := s.sessions.IsOnline(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	systemInfo, err := s.sessions.GetSystemInfo(ctx, client.ID)
	if err != nil {
		return nil, err
	}

	info := &domain.JudgeClientInfo{
		ID:         client.ID,
		Name:       client.Name,
		Online:     online,
		SystemInfo: systemInfo,
	}
	if showSensitive {
		key := client.Key
		info.Key = &key
		info.AllowedHosts = append([]string{}, client.AllowedHosts...)
	}
	return info, nil
}

func (s *JudgeClientService) GetJudgeClientInfo(ctx context.Context, id int, showSensitive bool) (*domain.JudgeClientInfo, error) {
	client, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.info(ctx, client, showSensitive)
}

func (s *JudgeClientService) ListJudgeClients(ctx context.Context, showSensitive bool) ([]*domain.JudgeClientInfo, error) {
	clients, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list judge clients: %w", err)
	}

	infos := make([]*domain.JudgeClientInfo, 0, len(clients))
	for _, client := range clients {
		info, err := s.info(ctx, client, showSensitive)
		if err != nil {
			s.logger.Error("Failed to load judge client status", "judgeClientId", client.ID, "error", err)
			return nil, fmt.Errorf("failed to load judge client status: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
