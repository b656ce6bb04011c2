package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avialex/api/internal/model"
)

func TestDashboardCSV(t *testing.T) {
	d := model.Dashboard{
		ActiveProcesses:   3,
		ActiveClients:     2,
		RecoveredValue:    1234567.89,
		SuccessFeePercent: 75,
		TotalProcesses:    8,
		MonthlyStats: []model.MonthlyProcessStats{
			{Month: "Janeiro/2026", WonProcesses: 3, LostProcesses: 1},
			{Month: "Fevereiro/2026", WonProcesses: 0, LostProcesses: 2},
		},
	}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	data, filename := DashboardCSV(d, start, end)
	assert.Equal(t, "dashboard_2026-01-01_2026-02-28.csv", filename)

	require.True(t, len(data) > 3)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3], "missing UTF-8 BOM")

	body := string(data[3:])
	assert.Contains(t, body, "\r\n")

	lines := strings.Split(strings.TrimRight(body, "\r\n"), "\r\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Processos ativos;Clientes ativos;Valor recuperado (R$);Taxa de sucesso (%);Total de processos", lines[0])
	assert.Equal(t, "3;2;1.234.567,89;75;8", lines[1])
	assert.Equal(t, "", lines[2])
	assert.Equal(t, "Mês;Processos ganhos;Processos perdidos", lines[3])
	assert.Equal(t, "Janeiro/2026;3;1", lines[4])
	assert.Equal(t, "Fevereiro/2026;0;2", lines[5])
}

func TestDashboardCSVEmptyMonths(t *testing.T) {
	data, _ := DashboardCSV(model.Dashboard{}, time.Now(), time.Now())
	body := string(data[3:])
	lines := strings.Split(strings.TrimRight(body, "\r\n"), "\r\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "0;0;0,00;0;0", lines[1])
}

func TestFormatBRL(t *testing.T) {
	cases := map[float64]string{
		0:          "0,00",
		1:          "1,00",
		999.5:      "999,50",
		1000:       "1.000,00",
		1234567.89: "1.234.567,89",
		-9876.5:    "-9.876,50",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatBRL(in), "value %v", in)
	}
}
