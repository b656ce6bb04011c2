// Package export renders dashboard data as a CSV download.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avialex/api/internal/model"
)

// utf8BOM helps Excel detect the encoding of the download.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DashboardCSV renders the dashboard as a semicolon-delimited, CRLF-ended
// CSV with pt-BR headers: a summary block followed by the monthly
// won/lost table. It returns the file bytes and a suggested filename.
func DashboardCSV(d model.Dashboard, start, end time.Time) ([]byte, string) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	w.Comma = ';'
	w.UseCRLF = true

	_ = w.Write([]string{"Processos ativos", "Clientes ativos", "Valor recuperado (R$)", "Taxa de sucesso (%)", "Total de processos"})
	_ = w.Write([]string{
		strconv.FormatInt(d.ActiveProcesses, 10),
		strconv.FormatInt(d.ActiveClients, 10),
		formatBRL(d.RecoveredValue),
		strconv.FormatInt(d.SuccessFeePercent, 10),
		strconv.FormatInt(d.TotalProcesses, 10),
	})
	_ = w.Write([]string{}) // blank separator line

	_ = w.Write([]string{"Mês", "Processos ganhos", "Processos perdidos"})
	for _, m := range d.MonthlyStats {
		_ = w.Write([]string{
			m.Month,
			strconv.FormatInt(m.WonProcesses, 10),
			strconv.FormatInt(m.LostProcesses, 10),
		})
	}
	w.Flush()

	filename := fmt.Sprintf("dashboard_%s_%s.csv",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	return buf.Bytes(), filename
}

// formatBRL renders a value with pt-BR separators: 1.234.567,89.
func formatBRL(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
