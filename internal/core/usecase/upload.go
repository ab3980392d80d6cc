package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
	"github.com/lexiscan-ai/lexiscan-backend/internal/core/ports"
)

// UploadAgreementUseCase handles document intake: store the original
// blob, create the external memory thread, create the agreement row.
type UploadAgreementUseCase struct {
	agreements ports.AgreementRepository
	storage    ports.ObjectStorage
	memory     ports.MemoryThreads
}

func NewUploadAgreementUseCase(
	agreements ports.AgreementRepository,
	storage ports.ObjectStorage,
	memory ports.MemoryThreads,
) *UploadAgreementUseCase {
	return &UploadAgreementUseCase{
		agreements: agreements,
		storage:    storage,
		memory:     memory,
	}
}

func (uc *UploadAgreementUseCase) Upload(ctx context.Context, userID, title, description string, file domain.FileUpload) (*domain.Agreement, error) {
	if len(file.Content) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload agreement", errors.New("file is required"))
	}
	if strings.TrimSpace(title) == "" {
		title = file.Name
	}

	storageKey := fmt.Sprintf("documents/%s_%s", uuid.NewString(), sanitizeFilename(file.Name))
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(file.Content)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	threadID, err := uc.memory.CreateThread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create memory thread: %w", err)
	}

	agreement := &domain.Agreement{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		StoragePath: storageKey,
		ThreadID:    threadID,
		Status:      domain.StatusCreated,
	}
	if err := uc.agreements.Create(ctx, agreement); err != nil {
		return nil, fmt.Errorf("create agreement: %w", err)
	}
	return agreement, nil
}

// Preview resolves the stored blob to a per-access URL.
func (uc *UploadAgreementUseCase) Preview(ctx context.Context, agreementID, userID string) (string, error) {
	agreement, err := uc.loadOwned(ctx, agreementID, userID)
	if err != nil {
		return "", err
	}
	url, err := uc.storage.AccessURL(ctx, agreement.StoragePath)
	if err != nil {
		return "", fmt.Errorf("resolve access url: %w", err)
	}
	return url, nil
}

func (uc *UploadAgreementUseCase) Delete(ctx context.Context, agreementID, userID string) error {
	if _, err := uc.loadOwned(ctx, agreementID, userID); err != nil {
		return err
	}
	if err := uc.agreements.Delete(ctx, agreementID); err != nil {
		return fmt.Errorf("delete agreement: %w", err)
	}
	return nil
}

func (uc *UploadAgreementUseCase) loadOwned(ctx context.Context, agreementID, userID string) (*domain.Agreement, error) {
	agreement, err := uc.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("fetch agreement: %w", err)
	}
	if agreement.UserID != userID {
		return nil, domain.WrapError(domain.ErrUnauthorized, "access agreement", errors.New("agreement belongs to another user"))
	}
	return agreement, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.pdf"
	}
	return base
}
