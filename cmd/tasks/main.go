// Package main provides the tasks command that emits the work-unit list so
// external schedulers can fan single-unit collections out across processes.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"qnews/internal/config"
	"qnews/internal/models"
	"qnews/internal/partition"
)

// task is one entry of the emitted list. Dates are formatted as calendar
// days so the values paste directly into collector -start-date/-end-date.
type task struct {
	TaskID    int    `json:"task_id"`
	Keyword   string `json:"keyword"`
	Quarter   string `json:"quarter"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// taskList is the on-disk document consumed by worker schedulers.
type taskList struct {
	GeneratedAt time.Time `json:"generated_at"`
	TotalTasks  int       `json:"total_tasks"`
	Tasks       []task    `json:"tasks"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	startYear := flag.Int("start-year", 0, "Override the first collection year")
	outPath := flag.String("output", "tasks.json", "Where to write the task list")
	list := flag.Bool("list", false, "Print the tasks instead of writing JSON")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			log.Fatalf("❌ %v", err)
		}

		fmt.Printf("⚠️  %s not found, using defaults\n", *configPath)

		cfg = config.DefaultConfig()
	}

	if *startYear != 0 {
		cfg.Collection.StartYear = *startYear
	}

	units, err := partition.Units(cfg.Keywords, cfg.Collection.StartYear, time.Now())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	tasks := make([]task, 0, len(units))
	for i, unit := range units {
		tasks = append(tasks, task{
			TaskID:    i + 1,
			Keyword:   unit.Keyword,
			Quarter:   unit.Quarter,
			StartDate: unit.StartDate.Format(models.DateLayout),
			EndDate:   unit.EndDate.Format(models.DateLayout),
		})
	}

	if *list {
		for _, tk := range tasks {
			fmt.Printf("%4d  %s  %s ~ %s  %s\n", tk.TaskID, tk.Quarter, tk.StartDate, tk.EndDate, tk.Keyword)
		}

		fmt.Printf("\n총 %d개 작업 (%d keywords × quarters since %d)\n",
			len(tasks), len(cfg.Keywords), cfg.Collection.StartYear)

		return
	}

	doc := taskList{
		GeneratedAt: time.Now(),
		TotalTasks:  len(tasks),
		Tasks:       tasks,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Fatalf("❌ Failed to encode task list: %v", err)
	}

	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Fatalf("❌ Failed to write %s: %v", *outPath, err)
	}

	fmt.Printf("✅ %s written (%d tasks)\n", *outPath, len(tasks))
}
