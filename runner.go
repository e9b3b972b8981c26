package sitrapesca

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Result summarizes one account's run.
type Result struct {
	Account      Account
	OptionClicks int
	Downloads    []Download
	Elapsed      time.Duration
}

// Runner downloads the report of each account in turn, one browser at a time.
type Runner struct {
	cfg Config
	log Logger
}

func NewRunner(cfg Config, log Logger) (*Runner, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = ConsoleLogger{}
	}
	return &Runner{cfg: cfg, log: log}, nil
}

func (r *Runner) Config() Config {
	return r.cfg
}

// RunAccount runs the whole workflow for one account. The browser is
// closed before returning, whatever the outcome. Failures are StageErrors.
func (r *Runner) RunAccount(ctx context.Context, account Account) (*Result, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	log := prefixLogger{prefix: account.String(), log: r.log}
	started := time.Now()

	if err := os.MkdirAll(r.cfg.OutputDir, 0755); err != nil {
		return nil, stageError(StageBrowser, err)
	}
	before, err := snapshotDir(r.cfg.OutputDir)
	if err != nil {
		return nil, stageError(StageBrowser, err)
	}

	log.Printf("starting SITRAPESCA download, panel #%d", account.Panel)
	b, err := NewBrowser(ctx, r.cfg.browserOptions(log))
	if err != nil {
		return nil, stageError(StageBrowser, err)
	}
	defer b.Close()

	w := &workflow{ctx: b.Ctx, cfg: r.cfg, log: log}

	if err := w.login(account); err != nil {
		return nil, stageError(StageLogin, err)
	}
	if err := w.openPanel(account.Panel); err != nil {
		return nil, stageError(StagePanel, err)
	}
	if err := w.openReport(); err != nil {
		return nil, stageError(StageNavigate, err)
	}
	clicks, err := w.configureReport()
	if err != nil {
		return nil, stageError(StageOptions, err)
	}
	if err := w.setDateRange(r.cfg.DateRange); err != nil {
		return nil, stageError(StageDates, err)
	}
	downloads, err := w.generateReport(before)
	if err != nil {
		return nil, stageError(StageGenerate, err)
	}

	result := &Result{
		Account:      account,
		OptionClicks: clicks,
		Downloads:    downloads,
		Elapsed:      time.Since(started),
	}
	log.Printf("done in %v", result.Elapsed.Round(time.Second))
	return result, nil
}

// Run processes accounts sequentially. A failed account is logged and the
// next one still runs; the failures are returned joined.
func (r *Runner) Run(ctx context.Context, accounts []Account) error {
	var errs []error
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := r.RunAccount(ctx, account); err != nil {
			r.log.Printf("[%v] aborted: %v", account, err)
			errs = append(errs, fmt.Errorf("%v: %w", account, err))
		}
	}
	r.log.Printf("process finished, files in %v", r.cfg.OutputDir)
	return errors.Join(errs...)
}
