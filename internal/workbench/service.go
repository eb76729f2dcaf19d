package workbench

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChumaSuey/TollPDFManager/internal/document"
	"github.com/ChumaSuey/TollPDFManager/internal/extraction"
	"github.com/ChumaSuey/TollPDFManager/internal/ledger"
	"github.com/ChumaSuey/TollPDFManager/internal/state"
)

// extractionZoom is the rendering zoom used for pages sent to extraction.
// Higher resolution than the viewer default helps the model read amounts.
const extractionZoom = 2.0

const (
	zoomStep = 0.2
	zoomMin  = 0.4
	zoomMax  = 3.0
)

// ErrStaleExtraction indicates an extraction result arrived after the page
// context changed and was discarded.
var ErrStaleExtraction = errors.New("extraction result discarded: page changed")

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// TokenGenerator generates page-context tokens for the stale-response guard
type TokenGenerator interface {
	Generate() string
}

type defaultClock struct{}

func (defaultClock) Now() time.Time {
	return time.Now()
}

type uuidTokenGenerator struct{}

func (uuidTokenGenerator) Generate() string {
	return uuid.NewString()
}

// PageInfo describes the open page context.
type PageInfo struct {
	Path      string  `json:"path"`
	Name      string  `json:"name"`
	Page      int     `json:"page"` // 1-based for display
	PageCount int     `json:"page_count"`
	Zoom      float64 `json:"zoom"`
}

// TableView is the current line-item table with its running sum.
type TableView struct {
	Items []ledger.LineItem `json:"items"`
	Total string            `json:"total"`
}

// CommitResult reports a successful commit and whether the session advanced
// to a new page or document.
type CommitResult struct {
	Confirmation ledger.Confirmation `json:"confirmation"`
	Advanced     bool                `json:"advanced"`
}

// ExportStatus describes the ledger target for the operator.
type ExportStatus struct {
	Folder   string `json:"folder"`
	Workbook string `json:"workbook"`
	Exists   bool   `json:"exists"`
}

// Service drives one operator's reconciliation session: browsing documents,
// paging, extraction, the line-item table, and committing records to the
// ledger. All mutations are serialized; the session is single-operator.
type Service struct {
	renderer  document.Renderer
	extractor extraction.Extractor
	writer    *ledger.Writer
	flags     state.FlagStore
	config    *state.ConfigStore
	clock     Clock
	tokens    TokenGenerator

	mu         sync.Mutex
	browseDir  string
	doc        document.Doc
	docPath    string
	pageIndex  int
	zoom       float64
	pageToken  string
	table      *ledger.Table
	session    *ledger.EditSession
	verified   string
	highlights map[string]struct{}
}

// NewService creates a Service with the default clock and token generator.
func NewService(renderer document.Renderer, extractor extraction.Extractor, writer *ledger.Writer, flags state.FlagStore, config *state.ConfigStore, browseDir string) *Service {
	return NewServiceWithDeps(renderer, extractor, writer, flags, config, browseDir, defaultClock{}, uuidTokenGenerator{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing.
func NewServiceWithDeps(renderer document.Renderer, extractor extraction.Extractor, writer *ledger.Writer, flags state.FlagStore, config *state.ConfigStore, browseDir string, clock Clock, tokens TokenGenerator) *Service {
	table := ledger.NewTable()
	return &Service{
		renderer:   renderer,
		extractor:  extractor,
		writer:     writer,
		flags:      flags,
		config:     config,
		clock:      clock,
		tokens:     tokens,
		browseDir:  browseDir,
		zoom:       1.0,
		table:      table,
		session:    ledger.NewEditSession(table),
		highlights: make(map[string]struct{}),
	}
}

// Close releases the open document, if any.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeDocLocked()
}

func (s *Service) closeDocLocked() error {
	if s.doc == nil {
		return nil
	}
	err := s.doc.Close()
	s.doc = nil
	s.docPath = ""
	return err
}

// BrowseDir returns the folder currently being browsed.
func (s *Service) BrowseDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browseDir
}

// SetBrowseDir switches the browsed folder and returns its listing.
func (s *Service) SetBrowseDir(dir string) ([]document.Entry, error) {
	s.mu.Lock()
	s.browseDir = dir
	s.mu.Unlock()
	return s.Documents()
}

// Documents lists the browsed folder, annotated with processed state derived
// from the current year's ledger and with persisted flags. Annotation
// sources failing yields unannotated entries, not an error.
func (s *Service) Documents() ([]document.Entry, error) {
	s.mu.Lock()
	dir := s.browseDir
	exportDir := s.exportDirLocked()
	year := s.clock.Now().Year()
	highlighted := make(map[string]struct{}, len(s.highlights))
	for path := range s.highlights {
		highlighted[path] = struct{}{}
	}
	s.mu.Unlock()

	processed := ledger.ProcessedDocuments(exportDir, year)

	flagged, err := s.flags.List()
	if err != nil {
		slog.Warn("Could not load flags for listing", "error", err)
		flagged = nil
	}

	return document.List(dir, processed, flagged, highlighted)
}

// Open opens a document and resets the page context to its first page. The
// line-item table, edit session and verified value are cleared.
func (s *Service) Open(path string) (PageInfo, error) {
	doc, err := s.renderer.Open(path)
	if err != nil {
		return PageInfo{}, fmt.Errorf("opening document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeDocLocked()
	s.doc = doc
	s.docPath = path
	s.pageIndex = 0
	s.newPageContextLocked(true)
	return s.pageInfoLocked(), nil
}

// newPageContextLocked rotates the stale-extraction token. When reset is
// true the table, edit session and verified value are cleared as well.
func (s *Service) newPageContextLocked(reset bool) {
	s.pageToken = s.tokens.Generate()
	if reset {
		s.table.Clear()
		s.session.Cancel()
		s.verified = ""
	}
}

func (s *Service) pageInfoLocked() PageInfo {
	info := PageInfo{Zoom: s.zoom}
	if s.doc != nil {
		info.Path = s.docPath
		info.Name = filepath.Base(s.docPath)
		info.Page = s.pageIndex + 1
		info.PageCount = s.doc.PageCount()
	}
	return info
}

// CurrentPage returns the open page context.
func (s *Service) CurrentPage() (PageInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return PageInfo{}, ledger.ErrMissingDocument
	}
	return s.pageInfoLocked(), nil
}

// PageImage renders the current page at the viewer zoom as PNG.
func (s *Service) PageImage() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ledger.ErrMissingDocument
	}
	img, err := s.doc.RenderPage(s.pageIndex, s.zoom)
	if err != nil {
		return nil, err
	}
	return document.EncodePNG(img)
}

// NextPage advances to the next page, or to the first page of the next
// document in the folder when already on the last page. Returns the new
// context, and false when there was nowhere to go.
func (s *Service) NextPage() (PageInfo, bool, error) {
	return s.navigate(1)
}

// PrevPage moves to the previous page, or to the previous document in the
// folder when already on the first page.
func (s *Service) PrevPage() (PageInfo, bool, error) {
	return s.navigate(-1)
}

func (s *Service) navigate(direction int) (PageInfo, bool, error) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return PageInfo{}, false, ledger.ErrMissingDocument
	}

	next := s.pageIndex + direction
	if next >= 0 && next < s.doc.PageCount() {
		s.pageIndex = next
		s.newPageContextLocked(false)
		info := s.pageInfoLocked()
		s.mu.Unlock()
		return info, true, nil
	}
	s.mu.Unlock()

	// At a document boundary; move to the adjacent file in the folder.
	return s.navigateFile(direction)
}

func (s *Service) navigateFile(direction int) (PageInfo, bool, error) {
	entries, err := s.Documents()
	if err != nil {
		return PageInfo{}, false, fmt.Errorf("listing documents: %w", err)
	}

	s.mu.Lock()
	current := s.docPath
	s.mu.Unlock()

	for i, entry := range entries {
		if entry.Path != current {
			continue
		}
		j := i + direction
		if j < 0 || j >= len(entries) {
			s.mu.Lock()
			info := s.pageInfoLocked()
			s.mu.Unlock()
			return info, false, nil
		}
		info, err := s.Open(entries[j].Path)
		return info, err == nil, err
	}

	s.mu.Lock()
	info := s.pageInfoLocked()
	s.mu.Unlock()
	return info, false, nil
}

// AdjustZoom steps the viewer zoom by delta, clamped to the supported
// range, and returns the effective zoom.
func (s *Service) AdjustZoom(delta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Round to one decimal to keep 0.2 steps from drifting.
	next := math.Round((s.zoom+delta)*10) / 10
	if next < zoomMin || next > zoomMax {
		return s.zoom
	}
	s.zoom = next
	return s.zoom
}

// Extract renders the current page for the vision provider and replaces the
// table with the proposed line items. The provider call runs without the
// session lock; a result arriving after the page context changed, or after
// the operator edited the table, is discarded and reported as
// ErrStaleExtraction, leaving the table untouched.
func (s *Service) Extract() (TableView, error) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return TableView{}, ledger.ErrMissingDocument
	}
	token := s.pageToken
	img, err := s.doc.RenderPage(s.pageIndex, extractionZoom)
	s.mu.Unlock()
	if err != nil {
		return TableView{}, fmt.Errorf("rendering page for extraction: %w", err)
	}

	pageImage, err := document.EncodePNG(img)
	if err != nil {
		return TableView{}, err
	}

	tolls, err := s.extractor.ExtractTolls(pageImage)
	if err != nil {
		return TableView{}, fmt.Errorf("extracting tolls: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pageToken != token {
		slog.Info("Discarding stale extraction result")
		return TableView{}, ErrStaleExtraction
	}

	lines := make([]ledger.ExtractedLine, len(tolls))
	for i, toll := range tolls {
		lines[i] = ledger.ExtractedLine{Amount: toll.Amount, Quantity: toll.Quantity}
	}
	s.table.ReplaceAll(lines)
	return s.tableViewLocked(), nil
}

func (s *Service) tableViewLocked() TableView {
	return TableView{
		Items: s.table.Items(),
		Total: s.table.Total().StringFixed(2),
	}
}

// Table returns the current line items and running sum.
func (s *Service) Table() TableView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tableViewLocked()
}

// AddItem appends a line item. Like every table mutation it rotates the
// extraction token, so an in-flight extraction cannot clobber the operator's
// manual work.
func (s *Service) AddItem(amount, quantity string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.table.Add(amount, quantity)
	if err != nil {
		return "", err
	}
	s.pageToken = s.tokens.Generate()
	return id, nil
}

// DeleteItems removes line items. Unknown IDs are ignored.
func (s *Service) DeleteItems(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Delete(ids...)
	s.pageToken = s.tokens.Generate()
}

// ClearItems empties the table.
func (s *Service) ClearItems() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Clear()
	s.pageToken = s.tokens.Generate()
}

// BeginEdit starts editing a line item and returns the staged input.
func (s *Service) BeginEdit(id string) (amount, quantity string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Begin(id); err != nil {
		return "", "", err
	}
	amount, quantity = s.session.Staged()
	return amount, quantity, nil
}

// ConfirmEdit applies the edited values to the target item.
func (s *Service) ConfirmEdit(amount, quantity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Confirm(amount, quantity); err != nil {
		return err
	}
	s.pageToken = s.tokens.Generate()
	return nil
}

// CancelEdit discards the in-flight edit.
func (s *Service) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Cancel()
}

// Editing returns the edit target, if an edit is in flight.
func (s *Service) Editing() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Target()
}

// SetVerified stores the operator's manually verified amount as entered.
func (s *Service) SetVerified(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified = value
}

// Verified returns the entered verified amount.
func (s *Service) Verified() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verified
}

// Comparison reports the advisory diff between the table total and the
// verified amount. A mismatch never blocks a commit.
func (s *Service) Comparison() (ledger.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verified == "" {
		return ledger.Comparison{}, ledger.ErrMissingVerification
	}
	verified, err := ledger.NormalizeAmount(s.verified)
	if err != nil {
		return ledger.Comparison{}, err
	}
	return ledger.Compare(s.table.Total(), verified), nil
}

// Commit reconciles the current page and appends it to the ledger, then
// clears the page inputs and advances to the next page or document.
func (s *Service) Commit() (CommitResult, error) {
	s.mu.Lock()

	var name string
	var page int
	if s.doc != nil {
		name = filepath.Base(s.docPath)
		page = s.pageIndex + 1
	}

	record, err := ledger.CanCommit(name, page, s.verified, s.clock.Now())
	if err != nil {
		s.mu.Unlock()
		return CommitResult{}, err
	}

	dir := s.exportDirLocked()
	s.mu.Unlock()

	confirmation, err := s.writer.Append(dir, record)
	if err != nil {
		return CommitResult{}, err
	}

	s.mu.Lock()
	s.newPageContextLocked(true)
	s.mu.Unlock()

	_, advanced, err := s.NextPage()
	if err != nil {
		// The record is safely in the ledger; a navigation problem only
		// means the operator stays on the same page.
		slog.Warn("Could not advance after commit", "error", err)
		advanced = false
	}

	return CommitResult{Confirmation: confirmation, Advanced: advanced}, nil
}

// ToggleFlag flips the review flag for a document path.
func (s *Service) ToggleFlag(path string) (bool, error) {
	return s.flags.Toggle(path)
}

// ToggleHighlight flips the in-memory highlight for a document path.
func (s *Service) ToggleHighlight(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.highlights[path]; ok {
		delete(s.highlights, path)
		return false
	}
	s.highlights[path] = struct{}{}
	return true
}

// exportDirLocked resolves the ledger target folder: the configured export
// folder, else the browsed folder, else the working directory.
func (s *Service) exportDirLocked() string {
	cfg, err := s.config.Load()
	if err != nil {
		slog.Warn("Could not load config, using browse folder", "error", err)
	}
	if cfg.ExportFolder != "" {
		return cfg.ExportFolder
	}
	if s.browseDir != "" {
		return s.browseDir
	}
	return "."
}

// ExportStatus reports the resolved ledger target and whether this year's
// workbook already exists there.
func (s *Service) ExportStatus() ExportStatus {
	s.mu.Lock()
	dir := s.exportDirLocked()
	year := s.clock.Now().Year()
	s.mu.Unlock()

	workbook := ledger.WorkbookName(year)
	_, err := os.Stat(filepath.Join(dir, workbook))
	return ExportStatus{
		Folder:   dir,
		Workbook: workbook,
		Exists:   err == nil,
	}
}

// SetExportFolder persists a new ledger target folder.
func (s *Service) SetExportFolder(dir string) error {
	cfg, err := s.config.Load()
	if err != nil {
		return err
	}
	cfg.ExportFolder = dir
	if err := s.config.Save(cfg); err != nil {
		return err
	}
	slog.Info("Export folder updated", "folder", dir)
	return nil
}
