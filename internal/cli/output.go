package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"Mansoor88-6/process-tracker/internal/controller"
	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/syncer"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// Printer renders command results as text or JSON.
type Printer struct {
	Format string
	W      io.Writer
}

func (p *Printer) json() bool {
	return p.Format == "json"
}

func (p *Printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.W)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatDuration renders d as HH:MM:SS; hours grow past two digits when needed.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s%3600/60, s%60)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

type statusJSON struct {
	State          string              `json:"state"`
	Record         *models.TimeRecord  `json:"record,omitempty"`
	ProcessName    string              `json:"processName,omitempty"`
	Step           *models.ProcessStep `json:"step,omitempty"`
	StepIndex      int                 `json:"stepIndex"`
	StepCount      int                 `json:"stepCount"`
	ElapsedSeconds int64               `json:"elapsedSeconds"`
	Pending        int                 `json:"pending"`
}

// Status renders the timer view and the number of records waiting for sync.
func (p *Printer) Status(v controller.View, pending int) error {
	if p.json() {
		out := statusJSON{
			State:          string(v.State),
			Record:         v.Record,
			Step:           v.CurrentStep,
			StepIndex:      v.StepIndex,
			StepCount:      v.StepCount,
			ElapsedSeconds: int64(v.Elapsed / time.Second),
			Pending:        pending,
		}
		if v.Process != nil {
			out.ProcessName = v.Process.Name
		}
		return p.writeJSON(out)
	}

	fmt.Fprintf(p.W, "State:    %s\n", v.State)
	if v.Record == nil {
		fmt.Fprintln(p.W, "No record running.")
	} else {
		if v.Process != nil {
			fmt.Fprintf(p.W, "Process:  %s (#%d)\n", v.Process.Name, v.Record.ProcessID)
		} else {
			fmt.Fprintf(p.W, "Process:  #%d\n", v.Record.ProcessID)
		}
		fmt.Fprintf(p.W, "Started:  %s\n", formatTime(v.Record.StartTime))
		fmt.Fprintf(p.W, "Elapsed:  %s\n", formatDuration(v.Elapsed))
		if v.CurrentStep != nil {
			fmt.Fprintf(p.W, "Step:     %d/%d %s", v.StepIndex+1, v.StepCount, v.CurrentStep.Name)
			if v.CurrentStep.RequiresPhoto {
				fmt.Fprint(p.W, " [photo required]")
			}
			if v.State == controller.StateStepDone {
				fmt.Fprint(p.W, " (done)")
			}
			fmt.Fprintln(p.W)
		}
		if v.State == controller.StateFinishing {
			fmt.Fprintln(p.W, "Waiting for stop confirmation.")
		}
	}
	_, err := fmt.Fprintf(p.W, "Pending:  %d record(s) awaiting sync\n", pending)
	return err
}

// Tick renders a single-line timer refresh for the watch command.
func (p *Printer) Tick(v controller.View) error {
	if p.json() {
		return p.writeJSON(statusJSON{
			State:          string(v.State),
			Record:         v.Record,
			Step:           v.CurrentStep,
			StepIndex:      v.StepIndex,
			StepCount:      v.StepCount,
			ElapsedSeconds: int64(v.Elapsed / time.Second),
		})
	}
	line := fmt.Sprintf("%s %s", formatDuration(v.Elapsed), v.State)
	if v.CurrentStep != nil {
		line += fmt.Sprintf(" step %d/%d %s", v.StepIndex+1, v.StepCount, v.CurrentStep.Name)
	}
	_, err := fmt.Fprintln(p.W, line)
	return err
}

// Processes renders process definitions. cachedAt is zero when the list came from the server.
func (p *Printer) Processes(defs []models.ProcessDefinition, cachedAt time.Time) error {
	if p.json() {
		return p.writeJSON(defs)
	}

	if len(defs) == 0 {
		_, err := fmt.Fprintln(p.W, "No processes available.")
		return err
	}
	if cachedAt.IsZero() {
		fmt.Fprintln(p.W, "Processes:")
	} else {
		fmt.Fprintf(p.W, "Processes (offline, cached %s):\n", formatTime(cachedAt))
	}
	for _, def := range defs {
		fmt.Fprintf(p.W, "#%d %s", def.ID, def.Name)
		if def.HasSteps() {
			fmt.Fprintf(p.W, " (%d steps)", len(def.Steps))
		}
		fmt.Fprintln(p.W)
		if def.Description != "" {
			fmt.Fprintf(p.W, "   %s\n", def.Description)
		}
		if !def.HasSteps() {
			continue
		}
		for i, step := range def.Steps {
			fmt.Fprintf(p.W, "   %d. %s", i+1, step.Name)
			if step.RequiresPhoto {
				fmt.Fprint(p.W, " [photo]")
			}
			fmt.Fprintln(p.W)
		}
	}
	return nil
}

// History renders local records newest first. names maps process ids to names.
func (p *Printer) History(records []models.TimeRecord, names map[int64]string) error {
	if p.json() {
		return p.writeJSON(records)
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(p.W, "No records yet.")
		return err
	}
	for _, rec := range records {
		name, ok := names[rec.ProcessID]
		if !ok {
			name = fmt.Sprintf("process #%d", rec.ProcessID)
		}
		duration := "running "
		if !rec.Active() {
			duration = formatDuration(time.Duration(rec.DurationSeconds) * time.Second)
		}
		state := "pending"
		if rec.Synced {
			state = "synced"
		}
		if rec.Active() {
			state = "active"
		}
		fmt.Fprintf(p.W, "#%d  %s  %s  %-7s  %s\n", rec.ID, formatTime(rec.StartTime), duration, state, name)
		if rec.Comment != "" {
			fmt.Fprintf(p.W, "    %s\n", rec.Comment)
		}
	}
	return nil
}

// Stopped renders a finished record.
func (p *Printer) Stopped(rec *models.TimeRecord) error {
	if p.json() {
		return p.writeJSON(rec)
	}
	_, err := fmt.Fprintf(p.W, "Stopped record #%d after %s.\n",
		rec.ID, formatDuration(time.Duration(rec.DurationSeconds)*time.Second))
	return err
}

type syncJSON struct {
	Online  bool `json:"online"`
	Pushed  int  `json:"pushed"`
	Failed  int  `json:"failed"`
	Pending int  `json:"pending"`
}

// Sync renders the outcome of a sync pass.
func (p *Printer) Sync(res syncer.Result, online bool, pending int) error {
	if p.json() {
		return p.writeJSON(syncJSON{Online: online, Pushed: res.Pushed, Failed: res.Failed, Pending: pending})
	}
	if !online {
		_, err := fmt.Fprintf(p.W, "Server unreachable; %d record(s) pending.\n", pending)
		return err
	}
	_, err := fmt.Fprintf(p.W, "Synced %d record(s), %d failed, %d pending.\n", res.Pushed, res.Failed, pending)
	return err
}

// Message renders a one-line confirmation.
func (p *Printer) Message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.json() {
		return p.writeJSON(map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(p.W, msg)
	return err
}
