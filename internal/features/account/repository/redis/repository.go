package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/CD-338080/Usdt-roller/internal/features/account/models"
	"github.com/CD-338080/Usdt-roller/internal/features/account/repository"
)

const (
	keyPrefixAccount = "account:"
	lockTTL          = 10 * time.Second
	lockRetryDelay   = 50 * time.Millisecond
	lockMaxWait      = 5 * time.Second
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another worker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type accountRepository struct {
	client *redis.Client
}

func NewAccountRepository(client *redis.Client) repository.AccountRepository {
	return &accountRepository{client: client}
}

func makeAccountKey(telegramID int64) string {
	return keyPrefixAccount + strconv.FormatInt(telegramID, 10)
}

func makeLockKey(telegramID int64) string {
	return makeAccountKey(telegramID) + ":lock"
}

func makeReferralsKey(referrerID int64) string {
	return makeAccountKey(referrerID) + ":referrals"
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	account.Version = 1
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	ok, err := r.client.SetNX(ctx, makeAccountKey(account.TelegramID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrAlreadyExists
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, telegramID int64) (*models.Account, error) {
	data, err := r.client.Get(ctx, makeAccountKey(telegramID)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	var account models.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	current, err := r.GetByID(ctx, account.TelegramID)
	if err != nil {
		return err
	}
	if current.Version != account.Version {
		return repository.ErrVersionConflict
	}

	account.Version++
	account.UpdatedAt = time.Now()

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	return r.client.Set(ctx, makeAccountKey(account.TelegramID), data, 0).Err()
}

// WithLock serializes read-validate-commit cycles per account via a SetNX
// lock with TTL, retried up to lockMaxWait before giving up.
func (r *accountRepository) WithLock(ctx context.Context, telegramID int64, fn func(ctx context.Context) error) error {
	lockKey := makeLockKey(telegramID)
	token := uuid.New().String()

	deadline := time.Now().Add(lockMaxWait)
	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return repository.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	defer func() {
		releaseScript.Run(context.Background(), r.client, []string{lockKey}, token)
	}()

	return fn(ctx)
}

func (r *accountRepository) AddReferral(ctx context.Context, referrerID, referredID int64) error {
	return r.client.SAdd(ctx, makeReferralsKey(referrerID), referredID).Err()
}

func (r *accountRepository) ListReferralIDs(ctx context.Context, referrerID int64) ([]int64, error) {
	members, err := r.client.SMembers(ctx, makeReferralsKey(referrerID)).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
