// Package vault stores emotional records at three confidentiality levels and
// enforces policy gating, integrity checking, and cryptographic erasure. All
// writes are policy-gated; reads re-check policy; deleting an encrypted
// record discards its wrapping key so the ciphertext becomes unrecoverable.
package vault

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/whisperleaf/whisperleaf/internal/constitution"
	"github.com/whisperleaf/whisperleaf/internal/crisis"
	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

var vaultTracer = otel.Tracer("whisperleaf/vault")

const lockStripes = 64

// PolicyChecker performs the fresh policy evaluation the vault runs on every
// read. The policy engine satisfies it.
type PolicyChecker interface {
	Evaluate(action string, reqContext map[string]string, consent map[string]bool, assessment *crisis.CrisisAssessment) *constitution.PolicyDecision
}

// Vault is the confidentiality layer over a RecordStore. Writes to the same
// id are serialized, reads are concurrent, and deletes are exclusive with
// in-flight reads and writes on that id.
type Vault struct {
	logger   *logging.Logger
	store    RecordStore
	keystore Keystore
	keys     KeyProvider
	policy   PolicyChecker

	locks [lockStripes]sync.RWMutex
}

// New creates a Vault over the given collaborators.
func New(logger *logging.Logger, store RecordStore, keystore Keystore, keys KeyProvider, policy PolicyChecker) *Vault {
	if logger == nil {
		logger = logging.Default()
	}
	return &Vault{
		logger:   logger,
		store:    store,
		keystore: keystore,
		keys:     keys,
		policy:   policy,
	}
}

func (v *Vault) lockFor(id string) *sync.RWMutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &v.locks[h.Sum32()%lockStripes]
}

// Write persists content at the given privacy level. The caller's policy
// decision is re-validated here as defense in depth. Cancellation is honored
// only before the commit point; a committed write is never rolled back.
func (v *Vault) Write(ctx context.Context, content string, level PrivacyLevel, attachments Attachments, decision *constitution.PolicyDecision) (*Record, error) {
	ctx, span := vaultTracer.Start(ctx, "vault.write")
	defer span.End()
	span.SetAttributes(attribute.String("vault.privacy_level", level.String()))

	if decision == nil || !decision.Allowed {
		return nil, fmt.Errorf("vault: write: %w", ErrPolicyViolation)
	}

	id := uuid.NewString()
	stored := []byte(content)

	lock := v.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if level == LevelEncrypted {
		material, err := v.keys.MaterialFor(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("vault: write: key material: %w", err)
		}
		dek, err := newDataKey()
		if err != nil {
			return nil, err
		}
		stored, err = sealBlob(dek, []byte(content), []byte(id))
		if err != nil {
			return nil, err
		}
		wrapped, err := sealBlob(material, dek, []byte("wrap:"+id))
		if err != nil {
			return nil, err
		}
		if err := v.keystore.PutWrapped(ctx, id, wrapped); err != nil {
			return nil, err
		}
	}

	rec := &Record{
		ID:           id,
		Content:      stored,
		PrivacyLevel: level,
		CreatedAt:    time.Now().UTC(),
		Attachments:  attachments,
		Checksum:     checksum(stored),
	}

	// Commit point. Past this, cancellation is not honored.
	if err := ctx.Err(); err != nil {
		if level == LevelEncrypted {
			_ = v.keystore.Discard(context.WithoutCancel(ctx), id)
		}
		return nil, fmt.Errorf("vault: write canceled before commit: %w", err)
	}
	if err := v.store.Put(ctx, rec); err != nil {
		return nil, err
	}

	v.logger.Info("record stored",
		"record_id", id,
		"privacy_level", level.String(),
	)
	return rec, nil
}

// Read returns the plaintext content of a record after a fresh policy check.
// Private records require an authenticated caller; encrypted records are
// decrypted in memory only. A checksum mismatch or authentication failure
// surfaces as an IntegrityError, never as corrupted content.
func (v *Vault) Read(ctx context.Context, id, requestedBy string) (string, error) {
	ctx, span := vaultTracer.Start(ctx, "vault.read")
	defer span.End()

	lock := v.lockFor(id)
	lock.RLock()
	defer lock.RUnlock()

	rec, err := v.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("vault.privacy_level", rec.PrivacyLevel.String()))

	decision := v.policy.Evaluate("read_record", map[string]string{
		"privacy_level": rec.PrivacyLevel.String(),
	}, nil, nil)
	if !decision.Allowed {
		return "", fmt.Errorf("vault: read denied by policy (%s): %w",
			strings.Join(violatedNames(decision), ", "), ErrPolicyViolation)
	}
	if rec.PrivacyLevel >= LevelPrivate && requestedBy == "" {
		return "", fmt.Errorf("vault: %s record requires an authenticated caller: %w",
			rec.PrivacyLevel.String(), ErrPolicyViolation)
	}

	if checksum(rec.Content) != rec.Checksum {
		return "", &IntegrityError{RecordID: id, Detail: "checksum mismatch"}
	}

	if rec.PrivacyLevel != LevelEncrypted {
		return string(rec.Content), nil
	}

	wrapped, err := v.keystore.GetWrapped(ctx, id)
	if err != nil {
		return "", err
	}
	material, err := v.keys.MaterialFor(ctx, id)
	if err != nil {
		return "", fmt.Errorf("vault: read: key material: %w", err)
	}
	dek, err := openBlob(material, wrapped, []byte("wrap:"+id))
	if err != nil {
		return "", fmt.Errorf("vault: unwrap failed: %w", ErrKeyUnavailable)
	}
	plaintext, err := openBlob(dek, rec.Content, []byte(id))
	if err != nil {
		return "", &IntegrityError{RecordID: id, Detail: "ciphertext authentication failed"}
	}
	return string(plaintext), nil
}

// Get returns the stored record without decrypting its content.
func (v *Vault) Get(ctx context.Context, id string) (*Record, error) {
	lock := v.lockFor(id)
	lock.RLock()
	defer lock.RUnlock()
	return v.store.Get(ctx, id)
}

// Delete erases a record. For encrypted records the wrapped data key is
// discarded first, so the ciphertext is unrecoverable even if a copy of the
// stored row survives.
func (v *Vault) Delete(ctx context.Context, id string) error {
	ctx, span := vaultTracer.Start(ctx, "vault.delete")
	defer span.End()

	lock := v.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	rec, err := v.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.PrivacyLevel == LevelEncrypted {
		if err := v.keystore.Discard(ctx, id); err != nil {
			return err
		}
	}
	if err := v.store.Delete(ctx, id); err != nil {
		return err
	}

	v.logger.Info("record erased",
		"record_id", id,
		"privacy_level", rec.PrivacyLevel.String(),
	)
	return nil
}

func violatedNames(d *constitution.PolicyDecision) []string {
	names := make([]string, len(d.ViolatedRules))
	for i, ref := range d.ViolatedRules {
		names[i] = ref.Name
	}
	return names
}
