package crisis

// ActionsFor returns the recommended action sequence for a risk level.
// Callers gate emergency interventions on the high list, which is never
// empty.
func ActionsFor(level RiskLevel) []string {
	switch level {
	case RiskHigh:
		return []string{
			"Encourage immediate professional help",
			"Share crisis hotline information: call or text 988 (Suicide & Crisis Lifeline)",
			"Share Crisis Text Line: text HOME to 741741",
			"Assess immediate safety",
			"Surface emergency services (911) if in immediate danger",
		}
	case RiskMedium:
		return []string{
			"Strongly encourage professional support",
			"Share relevant support resources",
			"Encourage safety planning",
			"Offer continued emotional support",
		}
	case RiskLow:
		return []string{
			"Monitor for escalation",
			"Offer supportive resources",
			"Encourage self-care",
		}
	default:
		return []string{"Continue supportive conversation"}
	}
}
