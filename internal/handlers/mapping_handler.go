package handler

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/repository"
	service "ledger-mapping-backend/internal/services/mapping"
)

type MappingHandler struct {
	service     *service.Service
	accountRepo *repository.AccountRepository
	log         zerolog.Logger
}

func NewMappingHandler(s *service.Service, accountRepo *repository.AccountRepository, log zerolog.Logger) *MappingHandler {
	return &MappingHandler{service: s, accountRepo: accountRepo, log: log}
}

func (h *MappingHandler) CreateAccount(c *gin.Context) {
	var payload struct {
		Code        string `json:"code"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Subtype     string `json:"subtype"`
		IsActive    *bool  `json:"is_active"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.Code == "" || payload.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and name are required"})
		return
	}

	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}
	account := &models.Account{
		ID:          uuid.New(),
		Code:        payload.Code,
		Name:        payload.Name,
		Description: payload.Description,
		Type:        models.AccountType(payload.Type),
		Subtype:     payload.Subtype,
		IsActive:    active,
		CreatedAt:   time.Now(),
	}
	if err := h.accountRepo.Create(account); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account created", "account": account})
}

func (h *MappingHandler) ListAccounts(c *gin.Context) {
	query := c.Query("q")
	var (
		accounts []models.Account
		err      error
	)
	if query != "" {
		accounts, err = h.accountRepo.Search(query)
	} else {
		accounts, err = h.accountRepo.GetAll()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// UploadAccounts ingests the chart of accounts from CSV:
// code,name,description,type,subtype,is_active
func (h *MappingHandler) UploadAccounts(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	reader := newSniffingCSVReader(file)

	// Skip header
	_, _ = reader.Read()

	inserted := 0
	rowNum := 0
	for {
		record, err := reader.Read()
		rowNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			h.log.Warn().Err(err).Int("row", rowNum).Msg("skipping malformed account row")
			continue
		}
		if len(record) < 4 {
			h.log.Warn().Int("row", rowNum).Msg("skipping account row with insufficient columns")
			continue
		}

		code := strings.TrimSpace(record[0])
		name := strings.TrimSpace(record[1])
		if code == "" || name == "" {
			continue
		}
		account := &models.Account{
			ID:          uuid.New(),
			Code:        code,
			Name:        name,
			Description: strings.TrimSpace(record[2]),
			Type:        models.AccountType(strings.ToLower(strings.TrimSpace(record[3]))),
			IsActive:    true,
			CreatedAt:   time.Now(),
		}
		if len(record) > 4 {
			account.Subtype = strings.TrimSpace(record[4])
		}
		if len(record) > 5 {
			if active, err := strconv.ParseBool(strings.TrimSpace(record[5])); err == nil {
				account.IsActive = active
			}
		}
		if err := h.accountRepo.Create(account); err != nil {
			h.log.Warn().Err(err).Int("row", rowNum).Str("code", code).Msg("skipping duplicate account")
			continue
		}
		inserted++
	}

	c.JSON(http.StatusOK, gin.H{
		"file":          header.Filename,
		"accountsAdded": inserted,
	})
}

// Initialize rebuilds the mapping indexes from the stored chart of accounts.
// An accounting standard may be supplied in the body; the default double-entry
// conventions apply otherwise.
func (h *MappingHandler) Initialize(c *gin.Context) {
	var standard *models.AccountingStandard
	if c.Request.ContentLength > 0 {
		var payload models.AccountingStandard
		if err := c.BindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid accounting standard payload"})
			return
		}
		standard = &payload
	}

	count, err := h.service.InitializeFromStore(standard)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "mapping initialized", "accounts": count})
}

// UploadTransactions ingests transactions from CSV and maps the batch in the
// background: date,description,customer,amount,debit_account,credit_account
func (h *MappingHandler) UploadTransactions(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	// The multipart file is closed when this handler returns, so buffer it
	// before handing off to the background goroutine.
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading upload failed"})
		return
	}

	batch := h.service.CreateBatch(header.Filename)

	go h.processCSV(batch.ID, bytes.NewReader(data))

	c.JSON(http.StatusAccepted, gin.H{
		"batch_id": batch.ID.String(),
		"status":   "processing",
	})
}

func (h *MappingHandler) processCSV(batchID uuid.UUID, reader io.Reader) {
	csvReader := newSniffingCSVReader(reader)

	// Skip header
	_, _ = csvReader.Read()

	count := 0
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		if len(record) < 4 || strings.Join(record, "") == "" {
			continue
		}

		date, err := parseDate(strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}
		amount := strings.TrimSpace(record[3])
		if _, err := strconv.ParseFloat(amount, 64); err != nil {
			continue
		}

		var debitCode, creditCode string
		if len(record) > 4 {
			debitCode = strings.TrimSpace(record[4])
		}
		if len(record) > 5 {
			creditCode = strings.TrimSpace(record[5])
		}

		h.service.CreateTransaction(batchID, strings.TrimSpace(record[1]), strings.TrimSpace(record[2]), date, amount, debitCode, creditCode)
		count++
	}

	h.log.Info().Str("batch_id", batchID.String()).Int("transactions", count).Msg("transaction upload ingested")

	h.service.RunBatch(batchID)
}

func (h *MappingHandler) GetBatchProgress(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}
	progress, err := h.service.GetProgress(batchID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *MappingHandler) ListTransactions(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	status := c.Query("status")
	cursor := c.Query("cursor")
	search := c.Query("search")
	limit := 50

	items, nextCursor, hasMore := h.service.ListTransactions(batchID, status, cursor, limit, search)
	stats, _ := h.service.Stats(batchID)

	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
		"stats":       stats,
	})
}

func (h *MappingHandler) GetStats(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}
	stats, err := h.service.Stats(batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *MappingHandler) MapTransaction(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	tx, err := h.service.MapTransaction(txID)
	if err != nil {
		if errors.Is(err, service.ErrNotInitialized) {
			c.JSON(http.StatusConflict, gin.H{"error": "mapping not initialized"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction mapped", "transaction": tx})
}

func (h *MappingHandler) ConfirmMapping(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		DebitAccountID  string `json:"debit_account_id"`
		CreditAccountID string `json:"credit_account_id"`
		PerformedBy     string `json:"performed_by"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	debitID, err := uuid.Parse(payload.DebitAccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid debit account ID"})
		return
	}
	creditID, err := uuid.Parse(payload.CreditAccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit account ID"})
		return
	}

	tx, err := h.service.ConfirmMapping(txID, debitID, creditID, payload.PerformedBy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "mapping confirmed", "transaction": tx})
}

func (h *MappingHandler) RejectMapping(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		PerformedBy string `json:"performed_by"`
	}
	_ = c.BindJSON(&payload)

	tx, err := h.service.RejectMapping(txID, payload.PerformedBy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "mapping rejected", "transaction": tx})
}

// SimilarAccounts exposes the pattern index lookup for review tooling.
func (h *MappingHandler) SimilarAccounts(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text query parameter required"})
		return
	}
	accountType := models.AccountType(c.Query("type"))
	limit := 5
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	scores := h.service.Orchestrator().FindSimilarAccounts(text, accountType, limit)
	c.JSON(http.StatusOK, gin.H{"matches": scores})
}

// newSniffingCSVReader builds a CSV reader that tolerates tab-delimited
// files and ragged rows.
func newSniffingCSVReader(r io.Reader) *csv.Reader {
	buffered := &peekReader{r: r}
	sample := buffered.Peek(1024)

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	if !strings.Contains(string(sample), ",") && strings.Contains(string(sample), "\t") {
		reader.Comma = '\t'
	}
	return reader
}

// peekReader buffers the head of a stream so the delimiter can be sniffed
// without losing data (multipart files are not seekable in general).
type peekReader struct {
	r   io.Reader
	buf []byte
}

func (p *peekReader) Peek(n int) []byte {
	buf := make([]byte, n)
	read, _ := io.ReadFull(p.r, buf)
	p.buf = buf[:read]
	return p.buf
}

func (p *peekReader) Read(b []byte) (int, error) {
	if len(p.buf) > 0 {
		n := copy(b, p.buf)
		p.buf = p.buf[n:]
		return n, nil
	}
	return p.r.Read(b)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse("02-01-2006", s)
}
