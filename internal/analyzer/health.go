package analyzer

// healthScore condenses the detected events into one 0-100 figure.
//
// Agent delays and termination problems carry the heaviest penalties: a slow
// agent and a broken ending are the clearest signs of a bad call. Agent
// delays are also counted in the general pause term, so each one costs 20
// points in total.
func healthScore(pauses []Pause, interruptions []Interruption, term Termination) float64 {
	score := 100.0

	agentDelays := 0
	for _, p := range pauses {
		if p.Type == PauseAgentDelay {
			agentDelays++
		}
	}

	score -= float64(agentDelays) * 15
	score -= float64(len(pauses)) * 5
	score -= float64(len(interruptions)) * 10
	score -= float64(len(term.Issues)) * 20

	if score < 0 {
		score = 0
	}
	return score
}
