package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avialex/api/internal/export"
	"github.com/avialex/api/internal/model"
	"github.com/avialex/api/internal/queue"
	"github.com/avialex/api/internal/queuepub"
	"github.com/avialex/api/internal/repository"
)

// monthPtBR maps 1-based month numbers to the labels shown on the
// dashboard.
var monthPtBR = [...]string{"",
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// ProcessHandler owns legal process records and the aggregated dashboard.
type ProcessHandler struct {
	Processes *repository.ProcessRepo
	Users     *repository.UserRepo

	// Publish sends a status-changed event; swapped out in tests.
	Publish func(ctx context.Context, ev queue.ProcessStatusChangedEvent) error
}

// NewProcessHandler wires the handler to the RabbitMQ publisher.
func NewProcessHandler(processes *repository.ProcessRepo, users *repository.UserRepo) *ProcessHandler {
	return &ProcessHandler{
		Processes: processes,
		Users:     users,
		Publish:   queuepub.PublishStatusChanged,
	}
}

type processRequest struct {
	ClientID        uint64   `json:"client_id"`
	Name            string   `json:"name"`
	InvolvedParties []string `json:"involved_parties"`
	ProcessNumber   int      `json:"process_number"`
	Status          string   `json:"status"`
}

type processUpdateRequest struct {
	ClientID        *uint64   `json:"client_id"`
	Name            *string   `json:"name"`
	InvolvedParties *[]string `json:"involved_parties"`
	ProcessNumber   *int      `json:"process_number"`
	Status          *string   `json:"status"`
	RecoveredValue  *float64  `json:"recovered_value"`
	Won             *bool     `json:"won"`
}

type statusUpdateRequest struct {
	Status         string   `json:"status"`
	RecoveredValue *float64 `json:"recovered_value"`
	Won            *bool    `json:"won"`
}

// Create registers a new process for an existing client.
func (h *ProcessHandler) Create(c echo.Context) error {
	var req processRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ClientID == 0 || req.Name == "" || req.ProcessNumber == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id, name and process_number are required"})
	}
	status := model.StatusCreated
	if req.Status != "" {
		s, ok := model.ParseProcessStatus(req.Status)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		status = s
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, req.ClientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "client does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load client"})
	}

	p := model.Process{
		ClientID:        req.ClientID,
		Name:            req.Name,
		InvolvedParties: req.InvolvedParties,
		ProcessNumber:   req.ProcessNumber,
		Status:          status,
	}
	if err := h.Processes.Create(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrProcessNumberExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "process number already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create process"})
	}
	return c.JSON(http.StatusCreated, p)
}

// List returns every process.
func (h *ProcessHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	items, err := h.Processes.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list processes"})
	}
	if items == nil {
		items = []model.Process{}
	}
	return c.JSON(http.StatusOK, items)
}

// GetByID returns one process.
func (h *ProcessHandler) GetByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid process id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	p, err := h.Processes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "process not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load process"})
	}
	return c.JSON(http.StatusOK, p)
}

// GetByNumber returns a process by its public case number. This endpoint is
// unauthenticated so clients can check their case without an account.
func (h *ProcessHandler) GetByNumber(c echo.Context) error {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid process number"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	p, err := h.Processes.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "process not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load process"})
	}
	return c.JSON(http.StatusOK, p)
}

// Search looks a process up by client name or client cpf.
func (h *ProcessHandler) Search(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	var (
		items []model.Process
		err   error
	)
	switch {
	case c.QueryParam("client_name") != "":
		items, err = h.Processes.ListByClientName(ctx, c.QueryParam("client_name"))
	case c.QueryParam("client_cpf") != "":
		items, err = h.Processes.ListByClientCPF(ctx, c.QueryParam("client_cpf"))
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_name or client_cpf is required"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not search processes"})
	}
	if items == nil {
		items = []model.Process{}
	}
	return c.JSON(http.StatusOK, items)
}

// Update merges a partial body into the stored row and writes it back. A
// status change publishes a notification event.
func (h *ProcessHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid process id"})
	}
	var req processUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	p, err := h.Processes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "process not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load process"})
	}
	oldStatus := p.Status

	if req.ClientID != nil {
		if _, err := h.Users.GetByID(ctx, *req.ClientID); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "client does not exist"})
		}
		p.ClientID = *req.ClientID
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.InvolvedParties != nil {
		p.InvolvedParties = *req.InvolvedParties
	}
	if req.ProcessNumber != nil {
		p.ProcessNumber = *req.ProcessNumber
	}
	if req.Status != nil {
		s, ok := model.ParseProcessStatus(*req.Status)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		p.Status = s
	}
	if req.RecoveredValue != nil {
		p.RecoveredValue = req.RecoveredValue
	}
	if req.Won != nil {
		p.Won = req.Won
	}

	if err := h.Processes.Update(ctx, p); err != nil {
		switch {
		case errors.Is(err, repository.ErrProcessNumberExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "process number already registered"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "process not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update process"})
	}

	if p.Status != oldStatus {
		h.publishStatusChange(c, p, oldStatus)
	}
	return c.JSON(http.StatusOK, p)
}

// UpdateStatus moves a process to a new status. Completing a process
// without an explicit won flag marks it won. A real status change notifies
// the client through the message queue.
func (h *ProcessHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid process id"})
	}
	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	status, ok := model.ParseProcessStatus(req.Status)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	p, err := h.Processes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "process not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load process"})
	}
	oldStatus := p.Status

	p.Status = status
	if req.RecoveredValue != nil {
		p.RecoveredValue = req.RecoveredValue
	}
	if req.Won != nil {
		p.Won = req.Won
	} else if status == model.StatusCompleted && p.Won == nil {
		won := true
		p.Won = &won
	}

	if err := h.Processes.Update(ctx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update process"})
	}

	if p.Status != oldStatus {
		h.publishStatusChange(c, p, oldStatus)
	}
	return c.JSON(http.StatusOK, p)
}

// Delete removes a process.
func (h *ProcessHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid process id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Processes.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "process not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete process"})
	}
	return c.NoContent(http.StatusNoContent)
}

// publishStatusChange looks up the client's email and publishes the event
// in the background. Publish failures are logged and never fail the
// request.
func (h *ProcessHandler) publishStatusChange(c echo.Context, p model.Process, oldStatus model.ProcessStatus) {
	ctx, cancel := dbCtx(c)
	defer cancel()

	client, err := h.Users.GetByID(ctx, p.ClientID)
	if err != nil {
		log.Printf("status-change: could not load client %d: %v", p.ClientID, err)
		return
	}
	ev := queue.ProcessStatusChangedEvent{
		ProcessID:     p.ID,
		ProcessNumber: p.ProcessNumber,
		ClientEmail:   client.Email,
		OldStatus:     oldStatus.PtBR(),
		NewStatus:     p.Status.PtBR(),
		ChangedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Publish(ctx, ev); err != nil {
			log.Printf("status-change: publish failed for process %d: %v", p.ID, err)
		}
	}()
}

// ---- dashboard ----

// parseDashboardRange reads startDate/endDate query params (2006-01-02).
// With neither set it defaults to the previous calendar month. The end date
// is extended to the last instant of its day.
func parseDashboardRange(c echo.Context) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	startStr, endStr := c.QueryParam("startDate"), c.QueryParam("endDate")

	if startStr == "" && endStr == "" {
		now := time.Now().UTC()
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start := firstOfMonth.AddDate(0, -1, 0)
		end := firstOfMonth.Add(-time.Second)
		return start, end, nil
	}
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate and endDate must be given together")
	}
	start, err := time.Parse(layout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid startDate")
	}
	end, err := time.Parse(layout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid endDate")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("endDate before startDate")
	}
	end = end.Add(24*time.Hour - time.Second)
	return start, end, nil
}

func (h *ProcessHandler) buildDashboard(ctx context.Context, start, end time.Time) (model.Dashboard, error) {
	var d model.Dashboard

	active, err := h.Processes.CountByStatusBetween(ctx,
		[]model.ProcessStatus{model.StatusCreated, model.StatusInProgress}, start, end)
	if err != nil {
		return d, err
	}
	total, err := h.Processes.CountBetween(ctx, start, end)
	if err != nil {
		return d, err
	}
	clients, err := h.Processes.CountDistinctClientsBetween(ctx, start, end)
	if err != nil {
		return d, err
	}
	rows, err := h.Processes.MonthlyWonLost(ctx, start, end)
	if err != nil {
		return d, err
	}

	var won, lost int64
	var recovered float64
	monthly := make([]model.MonthlyProcessStats, 0, len(rows))
	for _, r := range rows {
		won += r.Won
		lost += r.Lost
		recovered += r.Recovered
		monthly = append(monthly, model.MonthlyProcessStats{
			Month:         fmt.Sprintf("%s/%d", monthPtBR[r.Month], r.Year),
			WonProcesses:  r.Won,
			LostProcesses: r.Lost,
		})
	}

	d.ActiveProcesses = active
	d.ActiveClients = clients
	d.RecoveredValue = recovered
	d.TotalProcesses = total
	d.MonthlyStats = monthly
	if won+lost > 0 {
		d.SuccessFeePercent = int64(math.Round(float64(won) * 100.0 / float64(won+lost)))
	}
	return d, nil
}

// Dashboard returns aggregate process figures for the requested window.
func (h *ProcessHandler) Dashboard(c echo.Context) error {
	start, end, err := parseDashboardRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	d, err := h.buildDashboard(ctx, start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not build dashboard"})
	}
	return c.JSON(http.StatusOK, d)
}

// ExportDashboard streams the dashboard for the window as a CSV download.
func (h *ProcessHandler) ExportDashboard(c echo.Context) error {
	start, end, err := parseDashboardRange(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	d, err := h.buildDashboard(ctx, start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not build dashboard"})
	}

	data, filename := export.DashboardCSV(d, start, end)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
