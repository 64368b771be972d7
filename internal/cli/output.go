package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shaiso/leadmailer/internal/domain"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	// Заголовки
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	// Разделитель
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	// Строки данных
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// Report выводит отчёт цикла: сводку и таблицу результатов по парам.
func (o *Output) Report(r *domain.CycleReport) {
	if o.jsonMode {
		o.JSON(r)
		return
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Cycle:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
	if r.Reason != "" {
		fmt.Fprintf(tw, "Reason:\t%s\n", r.Reason)
	}
	fmt.Fprintf(tw, "Started:\t%s\n", formatTime(r.StartedAt))
	fmt.Fprintf(tw, "Duration:\t%s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(tw, "Due leads:\t%d\n", r.DueLeads)
	fmt.Fprintf(tw, "Sent:\t%d\n", r.Sent)
	fmt.Fprintf(tw, "Failed:\t%d\n", r.Failed)
	fmt.Fprintf(tw, "Without templates:\t%d\n", r.LeadsWithoutTemplates)
	tw.Flush()

	if len(r.Outcomes) == 0 {
		return
	}

	fmt.Fprintln(o.w)
	headers := []string{"LEAD", "TEMPLATE", "EMAIL", "RESULT", "ERROR"}
	rows := make([][]string, len(r.Outcomes))
	for i, oc := range r.Outcomes {
		result := "sent"
		if !oc.Success {
			result = "failed"
		}
		rows[i] = []string{
			strconv.FormatInt(oc.LeadID, 10),
			strconv.FormatInt(oc.TemplateID, 10),
			oc.Email,
			result,
			oc.Error,
		}
	}
	o.Table(headers, rows)
}

// Lead выводит состояние лида после квалификации.
func (o *Output) Lead(l *domain.Lead) {
	if o.jsonMode {
		o.JSON(l)
		return
	}

	next := "-"
	if l.NextSendAt != nil {
		next = formatTime(*l.NextSendAt)
	}
	tz := l.Timezone
	if tz == "" {
		tz = "-"
	}

	headers := []string{"ID", "EMAIL", "CLASSIFICATION", "TIMEZONE", "NEXT_SEND_AT", "ELIGIBLE", "SENT"}
	o.Table(headers, [][]string{{
		strconv.FormatInt(l.ID, 10),
		l.Email,
		l.Classification,
		tz,
		next,
		strconv.FormatBool(l.DelayedSendEligible),
		strconv.FormatBool(l.EmailSent),
	}})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
