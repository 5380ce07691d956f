package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/remedyops/k8s-sim-trainer/pkg/models"
	"github.com/remedyops/k8s-sim-trainer/pkg/storage"
)

func main() {
	// Database connection string
	dsn := "host=localhost port=5432 user=trainer password=devpassword dbname=simtrainer sslmode=disable"
	if envDSN := os.Getenv("DATABASE_URL"); envDSN != "" {
		dsn = envDSN
	}

	fmt.Println("[INFO] Connecting to PostgreSQL...")
	store, err := storage.NewPostgresStore(dsn)
	if err != nil {
		fmt.Printf("[ERROR] Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Test connection
	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		fmt.Printf("[ERROR] Ping failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("[SUCCESS] Connected to PostgreSQL")

	// Test 1: Save a training run
	fmt.Println("\n[TEST 1] Saving training run...")
	run := &models.TrainingRun{
		ClusterID:  "kind-simkube",
		Namespace:  "virtual-default",
		Deploy:     "web",
		AgentKind:  "dqn",
		RewardName: "shaped",
	}

	if err := store.SaveRun(ctx, run); err != nil {
		fmt.Printf("[ERROR] Save failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[SUCCESS] Saved training run: %s\n", run.ID)

	// Test 2: Save steps for the run
	fmt.Println("\n[TEST 2] Saving training steps...")
	steps := []*models.TrainingStep{
		{
			RunID:      run.ID,
			Episode:    1,
			StepIndex:  0,
			ActionType: "bump_cpu",
			Reward:     -0.5,
			Obs:        models.Observation{Ready: 1, Pending: 2, Total: 3},
		},
		{
			RunID:      run.ID,
			Episode:    1,
			StepIndex:  1,
			ActionType: "noop",
			Reward:     1.0,
			Obs:        models.Observation{Ready: 3, Pending: 0, Total: 3},
		},
	}
	for _, step := range steps {
		if err := store.SaveStep(ctx, step); err != nil {
			fmt.Printf("[ERROR] Save step failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("[SUCCESS] Saved %d steps\n", len(steps))

	// Test 3: List recent runs by namespace
	fmt.Println("\n[TEST 3] Listing recent runs...")
	runs, err := store.GetRecentRuns(ctx, "virtual-default", 10)
	if err != nil {
		fmt.Printf("[ERROR] List failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[SUCCESS] Found %d run(s) in virtual-default namespace\n", len(runs))
	for i, r := range runs {
		fmt.Printf("  %d. %s - agent=%s episodes=%d reward=%.2f\n",
			i+1, r.ID, r.AgentKind, r.Episodes, r.TotalReward)
	}

	// Test 4: Retrieve the run's steps
	fmt.Println("\n[TEST 4] Retrieving run steps...")
	stored, err := store.GetRunSteps(ctx, run.ID)
	if err != nil {
		fmt.Printf("[ERROR] Get steps failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[SUCCESS] Found %d step(s)\n", len(stored))
	for i, s := range stored {
		fmt.Printf("  %d. ep=%d step=%d action=%s reward=%+.2f ready=%d/%d\n",
			i+1, s.Episode, s.StepIndex, s.ActionType, s.Reward, s.Obs.Ready, s.Obs.Total)
	}

	// Test 5: Finalize the run (upsert with totals)
	fmt.Println("\n[TEST 5] Finalizing run...")
	now := time.Now()
	run.Episodes = 1
	run.TotalReward = 0.5
	run.FinishedAt = &now
	if err := store.SaveRun(ctx, run); err != nil {
		fmt.Printf("[ERROR] Finalize failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("[SUCCESS] Run finalized with totals")

	// Summary
	fmt.Println("\n" + "============================================================")
	fmt.Println("All tests passed!")
	fmt.Println("============================================================")
	fmt.Println("\nPostgreSQL Store is working correctly!")
	fmt.Println("  - Runs: Save, List, Finalize [OK]")
	fmt.Println("  - Steps: Save, Retrieve [OK]")
}
