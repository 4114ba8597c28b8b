package main

import (
	"fmt"
	"log/slog"
	"time"
)

// classifyRegistrations applies the cleanup business rules to every existing
// ECR registration. "now" is taken once per run by the caller so every record
// is judged against the same instant.
//
// Rules, in order:
//  1. account not in the credential map -> IGNORE (manual registration,
//     never auto-deleted)
//  2. offline with a parseable last activity older than the threshold ->
//     DELETE; younger -> KEEP
//  3. offline with a missing or unparseable last activity -> KEEP (never
//     delete on ambiguous data)
//  4. any other state -> KEEP
func classifyRegistrations(registrations []existingRegistration, credentials map[string]accountCredential, now time.Time, threshold time.Duration) []cleanupClassification {
	classifications := make([]cleanupClassification, 0, len(registrations))
	counts := map[cleanupDecision]int{}

	for _, registration := range registrations {
		classification := classify(registration, credentials, now, threshold)
		classifications = append(classifications, classification)
		counts[classification.decision]++

		slog.Info("cleanup",
			"registry", registration.url,
			"decision", string(classification.decision),
			"reason", classification.reason,
		)
	}

	slog.Info("cleanup analysis",
		"delete", counts[decisionDelete],
		"keep", counts[decisionKeep],
		"ignore", counts[decisionIgnore],
	)

	return classifications
}

func classify(registration existingRegistration, credentials map[string]accountCredential, now time.Time, threshold time.Duration) cleanupClassification {
	if _, found := credentials[registration.accountID]; !found {
		return cleanupClassification{
			registration: registration,
			decision:     decisionIgnore,
			reason:       fmt.Sprintf("account %s not registered, manual registration", registration.accountID),
		}
	}

	if registration.state != "offline" {
		return cleanupClassification{
			registration: registration,
			decision:     decisionKeep,
			reason:       fmt.Sprintf("state %s", registration.state),
		}
	}

	if registration.lastActivity == "" {
		return cleanupClassification{
			registration: registration,
			decision:     decisionKeep,
			reason:       "offline with no last activity recorded",
		}
	}

	lastActivity, err := time.Parse(time.RFC3339, registration.lastActivity)
	if err != nil {
		slog.Warn("cleanup", "registry", registration.url, "last_activity", registration.lastActivity, "error", err)
		return cleanupClassification{
			registration: registration,
			decision:     decisionKeep,
			reason:       "offline with unparseable last activity",
		}
	}

	if now.Sub(lastActivity) > threshold {
		return cleanupClassification{
			registration: registration,
			decision:     decisionDelete,
			reason:       fmt.Sprintf("offline since %s, exceeds %s threshold", registration.lastActivity, threshold),
		}
	}

	return cleanupClassification{
		registration: registration,
		decision:     decisionKeep,
		reason:       fmt.Sprintf("offline since %s, within %s threshold", registration.lastActivity, threshold),
	}
}

// cleanupCandidates filters the classifications down to the records the
// apply layer may delete.
func cleanupCandidates(classifications []cleanupClassification) []existingRegistration {
	var candidates []existingRegistration
	for _, classification := range classifications {
		if classification.decision == decisionDelete {
			candidates = append(candidates, classification.registration)
		}
	}
	return candidates
}

// registrationDiff returns the enriched registries not yet present in the
// target system. Equality is exact string match on the registry URL; both
// sides derive the URL from the same formula, so no normalization is applied.
func registrationDiff(enhanced []enrichedRegistry, existing map[string]struct{}) []enrichedRegistry {
	var toRegister []enrichedRegistry
	for _, registry := range enhanced {
		if _, found := existing[registry.registryURL]; !found {
			toRegister = append(toRegister, registry)
		}
	}
	return toRegister
}
