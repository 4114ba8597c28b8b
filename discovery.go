package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

const (
	ecrResourceFilter = `resource_type:"AWS::ECR::Repository"+cloud_provider:"aws"`
	detailBatchSize   = 100
)

type discoverer struct {
	api   *falconClient
	limit int
}

func newDiscoverer(api *falconClient, limit int) *discoverer {
	return &discoverer{api: api, limit: limit}
}

type resourceIDsResponse struct {
	Resources []string `json:"resources"`
}

type assetResource struct {
	AccountID  string `json:"account_id"`
	Region     string `json:"region"`
	ResourceID string `json:"resource_id"`
}

type resourceDetailsResponse struct {
	Resources []assetResource `json:"resources"`
}

func registryURL(accountID, region string) string {
	return fmt.Sprintf("https://%s.dkr.ecr.%s.amazonaws.com", accountID, region)
}

// discover queries the asset inventory for ECR repositories, hydrates them in
// batches and groups them into one registry per account+region. Groups keep
// insertion order.
func (d *discoverer) discover() ([]registryGroup, error) {
	query := url.Values{
		"filter": {ecrResourceFilter},
		"limit":  {strconv.Itoa(d.limit)},
	}

	var ids resourceIDsResponse
	if err := d.api.get("/cloud-security-assets/queries/resources/v1", query, &ids); err != nil {
		return nil, fmt.Errorf("querying ecr resources: %w", err)
	}

	if len(ids.Resources) == 0 {
		slog.Info("discovery", "status", "no ecr repositories found")
		return nil, nil
	}
	if len(ids.Resources) >= d.limit {
		// Single-page fetch only; estates at the ceiling may be truncated.
		slog.Warn("discovery", "resources", len(ids.Resources), "limit", d.limit, "status", "result ceiling reached, listing may be truncated")
	}
	slog.Info("discovery", "repositories", len(ids.Resources))

	resources := make([]assetResource, 0, len(ids.Resources))
	for start := 0; start < len(ids.Resources); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(ids.Resources) {
			end = len(ids.Resources)
		}

		var details resourceDetailsResponse
		if err := d.api.get("/cloud-security-assets/entities/resources/v1", url.Values{"ids": ids.Resources[start:end]}, &details); err != nil {
			return nil, fmt.Errorf("fetching resource details: %w", err)
		}
		resources = append(resources, details.Resources...)
	}

	if len(resources) < len(ids.Resources) {
		slog.Warn("discovery", "submitted", len(ids.Resources), "hydrated", len(resources), "status", "partial detail fetch")
	}

	return groupByRegistry(resources), nil
}

// groupByRegistry merges raw repository resources into registries keyed by
// account+region. Resources missing either field cannot be addressed and are
// skipped.
func groupByRegistry(resources []assetResource) []registryGroup {
	groups := make(map[string]*registryGroup, len(resources))
	var order []string

	for _, resource := range resources {
		if resource.AccountID == "" || resource.Region == "" {
			continue
		}

		key := resource.AccountID + "_" + resource.Region
		group, found := groups[key]
		if !found {
			group = &registryGroup{
				accountID:   resource.AccountID,
				region:      resource.Region,
				registryURL: registryURL(resource.AccountID, resource.Region),
			}
			groups[key] = group
			order = append(order, key)
		}
		group.repositories = append(group.repositories, resource.ResourceID)
	}

	list := make([]registryGroup, 0, len(order))
	for _, key := range order {
		group := groups[key]
		slog.Info("discovery", "registry", group.registryURL, "repositories", len(group.repositories))
		list = append(list, *group)
	}

	return list
}
