package world

func (w *World) buildSchedule() (*Schedule, error) {
	s := NewSchedule()
	systems := []System{
		{Name: "replay_feed", Stage: StageInput, Run: (*World).sysReplayFeed},
		{Name: "execute_actions", Stage: StageInput, After: []string{"replay_feed"}, Run: (*World).sysExecuteActions},

		{Name: "advance_clock", Stage: StagePreSim, Run: (*World).advanceTick},
		{Name: "reconcile_occupancy", Stage: StagePreSim, After: []string{"advance_clock"}, Run: (*World).sysReconcileOccupancy},
		{Name: "compute_demand", Stage: StagePreSim, After: []string{"reconcile_occupancy"}, Run: (*World).sysComputeDemand},
		{Name: "rebuild_eligible", Stage: StagePreSim, After: []string{"compute_demand"}, Run: (*World).sysRebuildEligible},
		{Name: "spawn_buildings", Stage: StagePreSim, After: []string{"rebuild_eligible"}, Run: (*World).sysSpawnBuildings},
		{Name: "progress_construction", Stage: StagePreSim, After: []string{"spawn_buildings"}, Run: (*World).sysProgressConstruction},

		{Name: "weather", Stage: StageSimulation, Run: (*World).sysWeather},
		{Name: "utilities", Stage: StageSimulation, After: []string{"weather"}, Run: (*World).sysUtilities},
		{Name: "services_coverage", Stage: StageSimulation, Run: (*World).sysServices},
		{Name: "energy_dispatch", Stage: StageSimulation, After: []string{"utilities"}, Run: (*World).sysEnergy},
		{Name: "building_evolution", Stage: StageSimulation, After: []string{"energy_dispatch", "services_coverage"}, Run: (*World).sysEvolveBuildings},
		{Name: "abandonment", Stage: StageSimulation, After: []string{"building_evolution"}, Run: (*World).sysAbandonment},
		{Name: "building_fire", Stage: StageSimulation, After: []string{"services_coverage"}, Run: (*World).sysBuildingFire},
		{Name: "citizen_life", Stage: StageSimulation, Run: (*World).sysCitizenLife},
		{Name: "citizen_needs", Stage: StageSimulation, After: []string{"utilities"}, Run: (*World).sysCitizenNeeds},
		{Name: "job_matching", Stage: StageSimulation, After: []string{"citizen_life"}, Run: (*World).sysJobMatching},
		{Name: "citizen_state_machine", Stage: StageSimulation, After: []string{"citizen_needs", "job_matching"}, FlushAfter: true, Run: (*World).sysCitizenStateMachine},
		{Name: "process_path_requests", Stage: StageSimulation, After: []string{"citizen_state_machine"}, Run: (*World).sysProcessPathRequests},
		{Name: "citizen_movement", Stage: StageSimulation, After: []string{"process_path_requests"}, Run: (*World).sysCitizenMovement},
		{Name: "homelessness", Stage: StageSimulation, After: []string{"citizen_movement"}, Run: (*World).sysHomelessness},
		{Name: "citizen_happiness", Stage: StageSimulation, After: []string{"services_coverage", "homelessness"}, Run: (*World).sysCitizenHappiness},
		{Name: "traffic", Stage: StageSimulation, After: []string{"citizen_movement"}, Run: (*World).sysTraffic},
		{Name: "freight", Stage: StageSimulation, After: []string{"traffic"}, Run: (*World).sysFreight},
		{Name: "transit", Stage: StageSimulation, After: []string{"traffic"}, Run: (*World).sysTransit},
		{Name: "road_condition", Stage: StageSimulation, After: []string{"freight"}, Run: (*World).sysRoadCondition},
		{Name: "environment", Stage: StageSimulation, After: []string{"traffic", "building_fire"}, Run: (*World).sysEnvironment},
		{Name: "disasters", Stage: StageSimulation, After: []string{"environment"}, Run: (*World).sysDisasters},
		{Name: "attractiveness", Stage: StageSimulation, After: []string{"citizen_happiness"}, Run: (*World).sysAttractiveness},
		{Name: "immigration", Stage: StageSimulation, After: []string{"attractiveness"}, Run: (*World).sysImmigration},
		{Name: "monthly_economy", Stage: StageSimulation, After: []string{"energy_dispatch", "transit"}, Run: (*World).sysMonthlyEconomy},
		{Name: "bankruptcy", Stage: StageSimulation, After: []string{"monthly_economy"}, Run: (*World).sysBankruptcy},

		{Name: "city_stats", Stage: StagePostSim, Run: (*World).sysCityStats},
		{Name: "milestones", Stage: StagePostSim, After: []string{"city_stats"}, Run: (*World).sysMilestones},
		{Name: "achievements", Stage: StagePostSim, After: []string{"city_stats"}, Run: (*World).sysAchievements},
		{Name: "tutorial", Stage: StagePostSim, After: []string{"city_stats"}, Run: (*World).sysTutorial},
		{Name: "notifications_sweep", Stage: StagePostSim, Run: (*World).sysNotificationsSweep},
		{Name: "observation", Stage: StagePostSim, After: []string{"milestones"}, Run: (*World).sysObservation},
		{Name: "autosave", Stage: StagePostSim, After: []string{"observation"}, Run: (*World).sysAutosave},
		{Name: "report_day", Stage: StagePostSim, After: []string{"autosave"}, Run: (*World).sysReportDay},
		{Name: "state_hash", Stage: StagePostSim, After: []string{"achievements", "tutorial", "notifications_sweep", "report_day"}, Run: (*World).sysStateHash},
	}
	for _, sys := range systems {
		if err := s.Add(sys); err != nil {
			return nil, err
		}
	}
	if err := s.Build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (w *World) slowTick() bool { return w.slow.ShouldRun(w.now) }

func (w *World) every(n int) bool {
	return n <= 1 || w.now%uint64(n) == 0
}

func (w *World) sysReplayFeed() {
	if w.player == nil {
		return
	}
	due := w.player.Due(w.now)
	if len(due) == 0 {
		return
	}
	rest := w.queue.Drain()
	w.queue.Push(due...)
	w.queue.Push(rest...)
}

func (w *World) sysStateHash() { w.hash = w.computeHash() }
