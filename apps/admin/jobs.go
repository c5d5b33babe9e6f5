package main

import "context"

// The job commands are invoked by the external scheduler (cron); cadence
// and retries are its concern, each run does one full pass.

func (cli *commandLine) overdueScan() error {
	emitted, err := cli.taskSvc.OverdueScan(context.Background())
	if err != nil {
		return err
	}
	logger.Printf("overduescan: %d notifications emitted", emitted)
	return nil
}

func (cli *commandLine) upcomingScan() error {
	emitted, err := cli.taskSvc.UpcomingScan(context.Background())
	if err != nil {
		return err
	}
	logger.Printf("upcomingscan: %d notifications emitted", emitted)
	return nil
}

func (cli *commandLine) cleanNotifications() error {
	deleted, err := cli.notifSvc.CleanOld(context.Background())
	if err != nil {
		return err
	}
	logger.Printf("cleannotifications: %d notifications deleted", deleted)
	return nil
}

func (cli *commandLine) monthlyStats() error {
	generated, err := cli.statsSvc.MonthlyBatch(context.Background())
	if err != nil {
		return err
	}
	logger.Printf("monthlystats: %d snapshots regenerated", generated)
	return nil
}
