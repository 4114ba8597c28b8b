package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

const dryRunRegistryID = "dry-run-id"

type applyOutcome struct {
	success bool
	record  registrationRecord
}

// registrar issues the mutating calls computed by the diff. Every operation
// is independent: one failure never aborts the rest of the batch.
type registrar struct {
	api    *falconClient
	dryRun bool
}

func newRegistrar(api *falconClient, dryRun bool) *registrar {
	return &registrar{api: api, dryRun: dryRun}
}

type registryCreateRequest struct {
	Type             string `json:"type"`
	URL              string `json:"url"`
	UserDefinedAlias string `json:"user_defined_alias"`
	Credential       struct {
		Details struct {
			AWSIAMRole    string `json:"aws_iam_role"`
			AWSExternalID string `json:"aws_external_id"`
		} `json:"details"`
	} `json:"credential"`
}

type registryCreateResponse struct {
	Resources struct {
		ID string `json:"id"`
	} `json:"resources"`
}

func (r *registrar) register(registry enrichedRegistry) applyOutcome {
	slog.Info("register",
		"registry", registry.registryURL,
		"account", registry.credential.accountName,
		"role", registry.credential.iamRoleARN,
		"repositories", len(registry.repositories),
		"dry_run", r.dryRun,
	)

	record := registrationRecord{
		URL:       registry.registryURL,
		AccountID: registry.accountID,
	}

	if r.dryRun {
		record.RegistryID = dryRunRegistryID
		return applyOutcome{success: true, record: record}
	}

	payload := registryCreateRequest{
		Type:             registryTypeECR,
		URL:              registry.registryURL,
		UserDefinedAlias: fmt.Sprintf("Auto-%s-%s", registry.credential.accountName, registry.region),
	}
	payload.Credential.Details.AWSIAMRole = registry.credential.iamRoleARN
	payload.Credential.Details.AWSExternalID = registry.credential.externalID

	var created registryCreateResponse
	if err := r.api.do(http.MethodPost, "/container-security/entities/registries/v1", nil, payload, &created); err != nil {
		slog.Error("register", "registry", registry.registryURL, "error", err)
		record.Error = err.Error()
		return applyOutcome{success: false, record: record}
	}

	record.RegistryID = created.Resources.ID
	slog.Info("register", "registry", registry.registryURL, "id", record.RegistryID, "status", "registered")
	return applyOutcome{success: true, record: record}
}

func (r *registrar) deregister(registration existingRegistration) applyOutcome {
	slog.Info("deregister",
		"registry", registration.url,
		"account", registration.accountID,
		"state", registration.state,
		"id", registration.id,
		"dry_run", r.dryRun,
	)

	record := registrationRecord{
		URL:        registration.url,
		AccountID:  registration.accountID,
		RegistryID: registration.id,
	}

	if r.dryRun {
		record.RegistryID = dryRunRegistryID
		return applyOutcome{success: true, record: record}
	}

	query := url.Values{"ids": {registration.id}}
	if err := r.api.do(http.MethodDelete, "/container-security/entities/registries/v1", query, nil, nil); err != nil {
		slog.Error("deregister", "registry", registration.url, "error", err)
		record.Error = err.Error()
		return applyOutcome{success: false, record: record}
	}

	slog.Info("deregister", "registry", registration.url, "status", "deleted")
	return applyOutcome{success: true, record: record}
}

// registerAll fans the register calls out over a bounded worker pool.
// Outcomes stay independent per registry; observable semantics match a
// sequential loop.
func (r *registrar) registerAll(registries []enrichedRegistry, workers int) []applyOutcome {
	if len(registries) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(registries) {
		workers = len(registries)
	}

	jobs := make(chan enrichedRegistry, len(registries))
	results := make(chan applyOutcome, len(registries))
	done := make(chan struct{})

	for _, registry := range registries {
		jobs <- registry
	}
	close(jobs)

	for i := 0; i < workers; i++ {
		go func() {
			defer func() {
				done <- struct{}{}
			}()
			for registry := range jobs {
				results <- r.register(registry)
			}
		}()
	}

	for i := 0; i < workers; i++ {
		<-done
	}
	close(results)

	outcomes := make([]applyOutcome, 0, len(registries))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// deregisterAll deletes sequentially; cleanup batches are small and the
// per-entity failure contract is the same either way.
func (r *registrar) deregisterAll(registrations []existingRegistration) []applyOutcome {
	outcomes := make([]applyOutcome, 0, len(registrations))
	for _, registration := range registrations {
		outcomes = append(outcomes, r.deregister(registration))
	}
	return outcomes
}
