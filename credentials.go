package main

import (
	"fmt"
	"log/slog"
	"net/url"
)

type credentialResolver struct {
	api *falconClient
}

func newCredentialResolver(api *falconClient) *credentialResolver {
	return &credentialResolver{api: api}
}

type accountRecord struct {
	AccountID        string `json:"account_id"`
	AccountName      string `json:"account_name"`
	ResourceMetadata struct {
		IAMRoleARN string `json:"iam_role_arn"`
		ExternalID string `json:"external_id"`
	} `json:"resource_metadata"`
}

type accountsResponse struct {
	Resources []accountRecord `json:"resources"`
}

// resolve looks up the delegated-access role and external ID registered for
// each account in one batched call. Accounts with incomplete registrations
// are excluded, not failed.
func (r *credentialResolver) resolve(accountIDs []string) (map[string]accountCredential, error) {
	if len(accountIDs) == 0 {
		return map[string]accountCredential{}, nil
	}

	var accounts accountsResponse
	if err := r.api.get("/cloud-security-registration-aws/entities/account/v1", url.Values{"ids": accountIDs}, &accounts); err != nil {
		return nil, fmt.Errorf("querying account registrations: %w", err)
	}

	credentials := make(map[string]accountCredential, len(accounts.Resources))
	for _, account := range accounts.Resources {
		role := account.ResourceMetadata.IAMRoleARN
		externalID := account.ResourceMetadata.ExternalID

		if account.AccountID == "" || role == "" || externalID == "" {
			slog.Warn("credentials", "account", account.AccountID, "status", "missing role or external id in registration")
			continue
		}

		name := account.AccountName
		if name == "" {
			name = "Unknown"
		}

		credentials[account.AccountID] = accountCredential{
			accountID:   account.AccountID,
			accountName: name,
			iamRoleARN:  role,
			externalID:  externalID,
		}
		slog.Info("credentials", "account", account.AccountID, "name", name, "role", role)
	}

	slog.Info("credentials", "resolved", len(credentials), "requested", len(accountIDs))
	return credentials, nil
}
