// Package session orchestrates the four-stage import wizard: Upload,
// Mapping, Validation, Complete. The session is the only owner of wizard
// state and the only component allowed to transition stages; every other
// pipeline component receives snapshots and returns pure results the
// session folds in.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/importer"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/bankprofile"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/commitexec"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/decoder"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/duplicate"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/mapping"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/normalizer"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/validator"
	"github.com/FACorreiaa/statement-import/pkg/config"
	"github.com/FACorreiaa/statement-import/pkg/metrics"
)

// Stage names the wizard stages. There are exactly four; no hidden
// sub-states.
type Stage string

const (
	StageUpload     Stage = "upload"
	StageMapping    Stage = "mapping"
	StageValidation Stage = "validation"
	StageComplete   Stage = "complete"
)

var (
	ErrInvalidTransition = errors.New("operation not allowed in current stage")
	ErrNoAccountSelected = errors.New("no account selected")
	ErrNoSuchRow         = errors.New("no preview row with that index")
)

// MappingIncompleteError blocks the mapping-to-validation transition and
// names the missing mandatory fields. It never corrupts state.
type MappingIncompleteError struct {
	Missing []mapping.Field
}

func (e *MappingIncompleteError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return "mapping incomplete: missing required fields: " + strings.Join(names, ", ")
}

// Store is the external transaction store the pipeline collaborates
// with: a duplicate lookup, a per-row writer, and account metadata.
type Store interface {
	duplicate.Lookup
	commitexec.Writer
	GetAccountCurrency(ctx context.Context, accountID uuid.UUID) (string, error)
}

// Dependencies wires a session to its collaborators.
type Dependencies struct {
	Store  Store
	Logger *slog.Logger
	Config config.ImportConfig
}

// Session is the root aggregate of one import interaction. It is
// single-writer: one user interaction stream manipulates it at a time,
// so it carries no internal locking.
type Session struct {
	ID uuid.UUID

	dec      *decoder.Decoder
	detector *bankprofile.Detector
	executor *commitexec.Executor
	store    Store
	logger   *slog.Logger
	cfg      config.ImportConfig
	memo     *mappingMemo

	state stageState
	err   error
}

// Each stage is a distinct variant carrying only the data valid for that
// stage, so invalid combinations (a result without a grid ever having
// existed, say) cannot be represented.
type stageState interface{ stage() Stage }

type uploadState struct{}

type mappingState struct {
	grid       *decoder.RawGrid
	detection  bankprofile.Detection
	mapping    mapping.ColumnMapping
	accountID  uuid.UUID
	hasAccount bool
}

type validationState struct {
	grid            *decoder.RawGrid
	detection       bankprofile.Detection
	mapping         mapping.ColumnMapping
	accountID       uuid.UUID
	accountCurrency string
	preview         []importer.PreviewRow
	decisions       map[int]commitexec.Decision
}

type completeState struct {
	result *importer.ImportResult
}

func (uploadState) stage() Stage     { return StageUpload }
func (mappingState) stage() Stage    { return StageMapping }
func (validationState) stage() Stage { return StageValidation }
func (completeState) stage() Stage   { return StageComplete }

// New creates a fresh session in the Upload stage.
func New(deps Dependencies) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Session{
		ID:       uuid.New(),
		dec:      decoder.New(deps.Config.MaxFileSizeBytes),
		detector: bankprofile.NewDetector(),
		executor: commitexec.New(deps.Store, deps.Logger),
		store:    deps.Store,
		logger:   deps.Logger,
		cfg:      deps.Config,
		state:    uploadState{},
	}
}

// Stage returns the current wizard stage.
func (s *Session) Stage() Stage { return s.state.stage() }

// Err returns the last failed operation's error. It is cleared by the
// next successful operation.
func (s *Session) Err() error { return s.err }

// UploadFile decodes the uploaded bytes and, on success, moves to the
// Mapping stage with the detector's suggested mapping pre-filled. On
// decode failure the session stays in Upload with the error recorded.
func (s *Session) UploadFile(data []byte, filename string) error {
	if _, ok := s.state.(uploadState); !ok {
		return s.fail(fmt.Errorf("%w: upload in stage %s", ErrInvalidTransition, s.Stage()))
	}

	grid, err := s.dec.Decode(data, filename)
	if err != nil {
		metrics.DecodeFailures.WithLabelValues(decodeFailureReason(err)).Inc()
		return s.fail(err)
	}
	metrics.FilesDecoded.WithLabelValues(string(grid.Format)).Inc()

	detection := s.detector.Detect(grid)
	s.logger.Info("statement decoded",
		"session", s.ID, "format", grid.Format, "rows", len(grid.Rows),
		"profile", profileName(detection.Profile), "confidence", detection.Confidence)

	seed := detection.Suggested.Clone()
	if s.memo != nil {
		if remembered, ok := s.memo.lookup(grid.Fingerprint); ok {
			seed = remembered
		}
	}

	s.state = mappingState{
		grid:      grid,
		detection: detection,
		mapping:   seed,
	}
	return s.ok()
}

// Detection exposes the advisory bank profile detection for display.
func (s *Session) Detection() (bankprofile.Detection, bool) {
	switch st := s.state.(type) {
	case mappingState:
		return st.detection, true
	case validationState:
		return st.detection, true
	}
	return bankprofile.Detection{}, false
}

// Mapping returns a snapshot of the current column mapping.
func (s *Session) Mapping() (mapping.ColumnMapping, bool) {
	switch st := s.state.(type) {
	case mappingState:
		return st.mapping.Clone(), true
	case validationState:
		return st.mapping.Clone(), true
	}
	return mapping.ColumnMapping{}, false
}

// Grid returns the decoded grid for preview rendering.
func (s *Session) Grid() (*decoder.RawGrid, bool) {
	switch st := s.state.(type) {
	case mappingState:
		return st.grid, true
	case validationState:
		return st.grid, true
	}
	return nil, false
}

// SetMapping applies one mapping edit. A bad edit records the error and
// re-renders the current stage; it never moves the wizard backward.
func (s *Session) SetMapping(field mapping.Field, col int) error {
	st, ok := s.state.(mappingState)
	if !ok {
		return s.fail(fmt.Errorf("%w: mapping edit in stage %s", ErrInvalidTransition, s.Stage()))
	}
	if err := st.mapping.Set(field, col); err != nil {
		return s.fail(err)
	}
	s.state = st
	return s.ok()
}

// SelectAccount chooses the destination account for committed rows.
func (s *Session) SelectAccount(accountID uuid.UUID) error {
	st, ok := s.state.(mappingState)
	if !ok {
		return s.fail(fmt.Errorf("%w: account selection in stage %s", ErrInvalidTransition, s.Stage()))
	}
	st.accountID = accountID
	st.hasAccount = true
	s.state = st
	return s.ok()
}

// MappingCompleteness re-runs the mandatory-field check; it is pure and
// recomputed on every call.
func (s *Session) MappingCompleteness() (mapping.Completeness, bool) {
	m, ok := s.Mapping()
	if !ok {
		return mapping.Completeness{}, false
	}
	return m.Completeness(), true
}

// ToValidation runs Normalizer, Validator and Duplicate Detector
// synchronously and moves to the Validation stage. The transition is
// gated on mapping completeness and an account selection; any failure
// keeps the session in Mapping with the error recorded.
func (s *Session) ToValidation(ctx context.Context) error {
	st, ok := s.state.(mappingState)
	if !ok {
		return s.fail(fmt.Errorf("%w: validation requested in stage %s", ErrInvalidTransition, s.Stage()))
	}

	if c := st.mapping.Completeness(); !c.Complete {
		return s.fail(&MappingIncompleteError{Missing: c.MissingRequired})
	}
	if !st.hasAccount {
		return s.fail(ErrNoAccountSelected)
	}

	accountCurrency, err := s.store.GetAccountCurrency(ctx, st.accountID)
	if err != nil {
		return s.fail(fmt.Errorf("resolve account currency: %w", err))
	}

	opts := s.normalizerOptions(st)
	preview := normalizer.Normalize(st.grid, st.mapping.Clone(), opts)

	vctx := s.validationContext(accountCurrency, fileCurrencyHint(st.grid, st.mapping))
	preview = validator.Apply(preview, vctx)

	preview, err = duplicate.Flag(ctx, preview, s.store, st.accountID, duplicate.Options{
		DateWindowDays:      s.cfg.DuplicateWindowDays,
		SimilarityThreshold: s.cfg.DuplicateSimilarity,
	})
	if err != nil {
		return s.fail(err)
	}

	flagged := 0
	for i := range preview {
		metrics.RowsClassified.WithLabelValues(preview[i].Status.String()).Inc()
		if preview[i].DuplicateOf != nil {
			flagged++
		}
	}
	metrics.DuplicatesFlagged.Add(float64(flagged))

	s.logger.Info("preview computed",
		"session", s.ID, "rows", len(preview), "duplicatesFlagged", flagged)

	if s.memo != nil {
		s.memo.remember(st.grid.Fingerprint, st.mapping)
	}

	s.state = validationState{
		grid:            st.grid,
		detection:       st.detection,
		mapping:         st.mapping,
		accountID:       st.accountID,
		accountCurrency: accountCurrency,
		preview:         preview,
		decisions:       make(map[int]commitexec.Decision),
	}
	return s.ok()
}

// Preview returns a copy of the preview rows.
func (s *Session) Preview() ([]importer.PreviewRow, bool) {
	st, ok := s.state.(validationState)
	if !ok {
		return nil, false
	}
	out := make([]importer.PreviewRow, len(st.preview))
	copy(out, st.preview)
	return out, true
}

// IncludeDuplicate force-includes a duplicate-flagged row at commit time.
func (s *Session) IncludeDuplicate(rowIndex int) error {
	return s.decide(rowIndex, commitexec.DecisionInclude)
}

// ExcludeRow removes a row from the accepted set.
func (s *Session) ExcludeRow(rowIndex int) error {
	return s.decide(rowIndex, commitexec.DecisionExclude)
}

// ResetDecision restores the pipeline's default handling for a row.
func (s *Session) ResetDecision(rowIndex int) error {
	return s.decide(rowIndex, commitexec.DecisionDefault)
}

func (s *Session) decide(rowIndex int, d commitexec.Decision) error {
	st, ok := s.state.(validationState)
	if !ok {
		return s.fail(fmt.Errorf("%w: row decision in stage %s", ErrInvalidTransition, s.Stage()))
	}
	if rowIndex < 0 || rowIndex >= len(st.preview) {
		return s.fail(fmt.Errorf("%w: %d", ErrNoSuchRow, rowIndex))
	}
	if d == commitexec.DecisionDefault {
		delete(st.decisions, rowIndex)
	} else {
		st.decisions[rowIndex] = d
	}
	s.state = st
	return s.ok()
}

// Commit writes the accepted rows as one logical batch and moves to the
// terminal Complete stage holding the result.
func (s *Session) Commit(ctx context.Context) error {
	st, ok := s.state.(validationState)
	if !ok {
		return s.fail(fmt.Errorf("%w: commit in stage %s", ErrInvalidTransition, s.Stage()))
	}

	result := s.executor.Execute(ctx, st.preview, st.decisions, st.accountID, st.accountCurrency)
	for _, row := range result.Rows {
		metrics.RowsCommitted.WithLabelValues(row.Kind.String()).Inc()
	}
	s.logger.Info("import committed",
		"session", s.ID, "account", st.accountID,
		"created", result.Created, "skipped", result.SkippedDuplicates, "failed", result.Failed)

	s.state = completeState{result: result}
	return s.ok()
}

// Result returns the terminal import result, present only in Complete.
func (s *Session) Result() (*importer.ImportResult, bool) {
	st, ok := s.state.(completeState)
	if !ok {
		return nil, false
	}
	return st.result, true
}

// BackToMapping returns from Validation to Mapping, re-using the same
// grid and mapping; nothing is re-decoded.
func (s *Session) BackToMapping() error {
	st, ok := s.state.(validationState)
	if !ok {
		return s.fail(fmt.Errorf("%w: back-to-mapping in stage %s", ErrInvalidTransition, s.Stage()))
	}
	s.state = mappingState{
		grid:       st.grid,
		detection:  st.detection,
		mapping:    st.mapping,
		accountID:  st.accountID,
		hasAccount: true,
	}
	return s.ok()
}

// BackToUpload discards the current grid and mapping and returns to a
// bare Upload stage.
func (s *Session) BackToUpload() error {
	if _, ok := s.state.(mappingState); !ok {
		return s.fail(fmt.Errorf("%w: back-to-upload in stage %s", ErrInvalidTransition, s.Stage()))
	}
	s.state = uploadState{}
	return s.ok()
}

// Reset discards the entire session state and returns to a fresh Upload
// stage. It is the only transition out of Complete and is allowed from
// any stage; there is no partial reuse.
func (s *Session) Reset() {
	s.state = uploadState{}
	s.err = nil
}

func (s *Session) ok() error {
	s.err = nil
	return nil
}

func (s *Session) fail(err error) error {
	s.err = err
	return err
}

func (s *Session) normalizerOptions(st mappingState) normalizer.Options {
	opts := normalizer.Options{UnsignedDirection: importer.DirectionDebit}
	if p := st.detection.Profile; p != nil {
		opts.EuropeanFormat = p.EuropeanFormat
		opts.DayFirst = p.DayFirst
		opts.UnsignedDirection = p.UnsignedAmountDirection
		return opts
	}
	dialect := decoder.ProbeDialect(st.grid.Rows,
		st.mapping.Column(mapping.FieldAmount), st.mapping.Column(mapping.FieldDate))
	opts.EuropeanFormat = dialect.EuropeanFormat
	opts.DayFirst = dialect.DayFirst
	return opts
}

func (s *Session) validationContext(accountCurrency, fileCurrency string) validator.Context {
	vctx := validator.NewContext(nowFunc())
	if s.cfg.DatePastYears > 0 {
		vctx.MinDate = vctx.Today.AddDate(-s.cfg.DatePastYears, 0, 0)
	}
	if s.cfg.DateFutureYears > 0 {
		vctx.MaxDate = vctx.Today.AddDate(s.cfg.DateFutureYears, 0, 0)
	}
	if s.cfg.LargeAmountThreshold > 0 {
		vctx.LargeAmountThreshold = decimal.NewFromFloat(s.cfg.LargeAmountThreshold)
	}
	vctx.AccountCurrency = accountCurrency
	vctx.FileCurrency = fileCurrency
	return vctx
}

func profileName(p *bankprofile.Profile) string {
	if p == nil {
		return "none"
	}
	return p.Name
}

func decodeFailureReason(err error) string {
	switch {
	case errors.Is(err, decoder.ErrTooLarge):
		return "too_large"
	case errors.Is(err, decoder.ErrEmpty):
		return "empty"
	default:
		return "malformed"
	}
}
