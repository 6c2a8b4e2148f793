// Package artifact persists a trained model and its encoder state as two
// files that can be loaded independently but only make sense together.
//
// Each file is a JSON envelope carrying the schema version, the artifact
// kind, the pair ID shared by both halves and a SHA-256 of the payload.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is bumped whenever a payload layout changes. Artifacts
// written under another version are treated as absent.
const SchemaVersion = 1

const (
	KindModel   = "model"
	KindEncoder = "encoder"
)

var (
	// ErrNotFound means there is nothing usable to load: a file is
	// missing, unreadable or from another schema version.
	ErrNotFound = errors.New("artifact not found")
	// ErrCorruptArtifact means the files exist but cannot be trusted.
	ErrCorruptArtifact = errors.New("artifact corrupt")
)

// Meta identifies one trained pair.
type Meta struct {
	PairID    uuid.UUID `json:"pair_id"`
	TrainedAt time.Time `json:"trained_at"`
}

// NewMeta stamps a freshly trained pair.
func NewMeta() Meta {
	return Meta{PairID: uuid.New(), TrainedAt: time.Now().UTC()}
}

type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Kind          string          `json:"kind"`
	Name          string          `json:"name"`
	PairID        uuid.UUID       `json:"pair_id"`
	TrainedAt     time.Time       `json:"trained_at"`
	Checksum      string          `json:"checksum"`
	Payload       json.RawMessage `json:"payload"`
}

// FileStore keeps the artifacts of one model family under a directory as
// <name>.model.json and <name>.encoder.json.
type FileStore[M any, E any] struct {
	dir     string
	name    string
	version int
}

// NewFileStore creates a store for the named model family.
func NewFileStore[M any, E any](dir, name string) *FileStore[M, E] {
	return &FileStore[M, E]{dir: dir, name: name, version: SchemaVersion}
}

// ModelPath is where the model artifact lives.
func (s *FileStore[M, E]) ModelPath() string {
	return filepath.Join(s.dir, s.name+".model.json")
}

// EncoderPath is where the encoder artifact lives.
func (s *FileStore[M, E]) EncoderPath() string {
	return filepath.Join(s.dir, s.name+".encoder.json")
}

// Save writes both artifacts. Each file is replaced atomically; a crash
// between the two writes leaves mismatched pair IDs, which Load reports
// as corrupt.
func (s *FileStore[M, E]) Save(m M, e E, meta Meta) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := s.write(s.EncoderPath(), KindEncoder, e, meta); err != nil {
		return err
	}
	return s.write(s.ModelPath(), KindModel, m, meta)
}

// Load reads both artifacts and checks that they belong together.
func (s *FileStore[M, E]) Load() (M, E, Meta, error) {
	var (
		m    M
		e    E
		meta Meta
	)
	menv, err := s.read(s.ModelPath(), KindModel)
	if err != nil {
		return m, e, meta, err
	}
	eenv, err := s.read(s.EncoderPath(), KindEncoder)
	if err != nil {
		return m, e, meta, err
	}
	if menv.PairID != eenv.PairID {
		return m, e, meta, fmt.Errorf("%w: model pair %s does not match encoder pair %s", ErrCorruptArtifact, menv.PairID, eenv.PairID)
	}
	if err := json.Unmarshal(menv.Payload, &m); err != nil {
		return m, e, meta, fmt.Errorf("%w: decode %s: %v", ErrCorruptArtifact, s.ModelPath(), err)
	}
	if err := json.Unmarshal(eenv.Payload, &e); err != nil {
		return m, e, meta, fmt.Errorf("%w: decode %s: %v", ErrCorruptArtifact, s.EncoderPath(), err)
	}
	return m, e, Meta{PairID: menv.PairID, TrainedAt: menv.TrainedAt}, nil
}

func (s *FileStore[M, E]) write(path, kind string, v any, meta Meta) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", s.name, kind, err)
	}
	raw, err := json.Marshal(envelope{
		SchemaVersion: s.version,
		Kind:          kind,
		Name:          s.name,
		PairID:        meta.PairID,
		TrainedAt:     meta.TrainedAt,
		Checksum:      checksum(payload),
		Payload:       payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", kind, err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (s *FileStore[M, E]) read(path, kind string) (*envelope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	// Peek at the version first so an older layout reads as absent rather
	// than corrupt.
	var head struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArtifact, path, err)
	}
	if head.SchemaVersion != s.version {
		return nil, fmt.Errorf("%w: %s has schema version %d, want %d", ErrNotFound, path, head.SchemaVersion, s.version)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArtifact, path, err)
	}
	if env.Kind != kind || env.Name != s.name {
		return nil, fmt.Errorf("%w: %s holds %s/%s, want %s/%s", ErrCorruptArtifact, path, env.Name, env.Kind, s.name, kind)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, env.Payload); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrCorruptArtifact, path, err)
	}
	if checksum(compact.Bytes()) != env.Checksum {
		return nil, fmt.Errorf("%w: %s checksum mismatch", ErrCorruptArtifact, path)
	}
	if env.PairID == uuid.Nil {
		return nil, fmt.Errorf("%w: %s has no pair id", ErrCorruptArtifact, path)
	}
	return &env, nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
