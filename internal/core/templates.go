package core

import "antirisk.com/intelligence-unit/internal/store"

// StaticTemplates returns the built-in toolkit documents. They are served
// read-only; exporting a fresh slice keeps callers from mutating the set.
func StaticTemplates() []store.Template {
	return []store.Template{
		{
			ID:          "patrol-checklist",
			Title:       "Executive Perimeter Audit",
			Description: "High-level checklist for comprehensive site security audits.",
			Content:     "🛡️ *ANTI-RISK PERIMETER AUDIT CHECKLIST*\n\n[ ] Fencing Integrity\n[ ] Access Controls\n[ ] Guard Discipline\n[ ] CCTV Functionality",
		},
		{
			ID:          "incident-report-5ws",
			Title:       "Standard Incident Report (SIR)",
			Description: "Professional 5Ws+H format for insurance and legal compliance.",
			Content:     "📝 *STANDARD INCIDENT REPORT (SIR)*\n\nWHO: ...\nWHERE: ...\nWHAT: ...\nWHEN: ...\nWHY: ...\nHOW: ...",
		},
	}
}
