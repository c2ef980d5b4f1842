package memory

import "github.com/codeready-toolchain/agentcore/pkg/corekit"

// TrimPreservingToolPairs bounds messages to budget tokens, keeping the most
// recent messages and dropping the oldest first. An assistant message
// carrying tool calls and the tool-response message(s) that immediately
// follow it are treated as a single atomic unit, so a cutoff never lands
// between a tool call and its result. A non-positive budget keeps only the
// most recent user message.
func TrimPreservingToolPairs(messages []corekit.Message, budget int, estimate TokenEstimator) []corekit.Message {
	if estimate == nil {
		estimate = EstimateTokens
	}
	if budget <= 0 {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].Role == corekit.RoleUser {
				return []corekit.Message{messages[i]}
			}
		}
		return nil
	}
	if len(messages) == 0 {
		return messages
	}

	units := groupToolPairUnits(messages)

	kept := make([]corekit.Message, 0, len(messages))
	used := 0
	for i := len(units) - 1; i >= 0; i-- {
		unit := units[i]
		cost := 0
		for _, m := range unit {
			cost += estimate(m.Text)
		}
		if used+cost > budget && len(kept) > 0 {
			break
		}
		for j := len(unit) - 1; j >= 0; j-- {
			kept = append(kept, unit[j])
		}
		used += cost
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

// groupToolPairUnits partitions messages into atomic trim units: an
// assistant message with tool calls together with the tool-response
// message(s) immediately following it forms one unit; every other message
// is its own single-message unit.
func groupToolPairUnits(messages []corekit.Message) [][]corekit.Message {
	units := make([][]corekit.Message, 0, len(messages))
	for i := 0; i < len(messages); i++ {
		m := messages[i]
		if m.Role == corekit.RoleAssistant && len(m.ToolCalls) > 0 {
			unit := []corekit.Message{m}
			j := i + 1
			for j < len(messages) && messages[j].Role == corekit.RoleToolResponse {
				unit = append(unit, messages[j])
				j++
			}
			units = append(units, unit)
			i = j - 1
			continue
		}
		units = append(units, []corekit.Message{m})
	}
	return units
}
