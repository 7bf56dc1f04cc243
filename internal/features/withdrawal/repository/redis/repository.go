package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CD-338080/Usdt-roller/internal/features/withdrawal/models"
	"github.com/CD-338080/Usdt-roller/internal/features/withdrawal/repository"
)

const (
	keyPrefixWithdrawal = "withdrawal:"
	keyPrefixByAccount  = "account:"
	keySuffixByAccount  = ":withdrawals"
)

type withdrawalRepository struct {
	client *redis.Client
}

func NewWithdrawalRepository(client *redis.Client) repository.WithdrawalRepository {
	return &withdrawalRepository{client: client}
}

func makeWithdrawalKey(id string) string {
	return keyPrefixWithdrawal + id
}

func makeAccountIndexKey(telegramID int64) string {
	return keyPrefixByAccount + strconv.FormatInt(telegramID, 10) + keySuffixByAccount
}

func (r *withdrawalRepository) Create(ctx context.Context, w *models.Withdrawal) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal withdrawal: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, makeWithdrawalKey(w.ID), data, 0)
	pipe.SAdd(ctx, makeAccountIndexKey(w.TelegramID), w.ID)

	_, err = pipe.Exec(ctx)
	return err
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id string) (*models.Withdrawal, error) {
	data, err := r.client.Get(ctx, makeWithdrawalKey(id)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, err
	}

	var w models.Withdrawal
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	return &w, nil
}

func (r *withdrawalRepository) Update(ctx context.Context, w *models.Withdrawal) error {
	w.UpdatedAt = time.Now()

	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal withdrawal: %w", err)
	}

	return r.client.Set(ctx, makeWithdrawalKey(w.ID), data, 0).Err()
}

func (r *withdrawalRepository) ListByAccount(ctx context.Context, telegramID int64) ([]*models.Withdrawal, error) {
	ids, err := r.client.SMembers(ctx, makeAccountIndexKey(telegramID)).Result()
	if err != nil {
		return nil, err
	}

	withdrawals := make([]*models.Withdrawal, 0, len(ids))
	for _, id := range ids {
		w, err := r.GetByID(ctx, id)
		if err != nil {
			continue
		}
		withdrawals = append(withdrawals, w)
	}

	sort.Slice(withdrawals, func(i, j int) bool {
		return withdrawals[i].CreatedAt.After(withdrawals[j].CreatedAt)
	})

	return withdrawals, nil
}
