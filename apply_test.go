package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enrichedFixture(account, region string) enrichedRegistry {
	return enrichedRegistry{
		registryGroup: registryGroup{
			accountID:    account,
			region:       region,
			registryURL:  registryURL(account, region),
			repositories: []string{"api"},
		},
		credential: accountCredential{
			accountID:   account,
			accountName: "prod",
			iamRoleARN:  "arn:aws:iam::" + account + ":role/reader",
			externalID:  "ext-" + account,
		},
	}
}

func TestRegisterSendsCreatePayload(t *testing.T) {
	fake := newFakeAPI(t)
	registrar := newRegistrar(fake.authedClient(t), false)

	outcome := registrar.register(enrichedFixture("111122223333", "us-east-1"))

	require.True(t, outcome.success)
	assert.Equal(t, "reg-1", outcome.record.RegistryID)

	require.Len(t, fake.registerCalls, 1)
	payload := fake.registerCalls[0]
	assert.Equal(t, "ecr", payload["type"])
	assert.Equal(t, "https://111122223333.dkr.ecr.us-east-1.amazonaws.com", payload["url"])
	assert.Equal(t, "Auto-prod-us-east-1", payload["user_defined_alias"])

	details := payload["credential"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "arn:aws:iam::111122223333:role/reader", details["aws_iam_role"])
	assert.Equal(t, "ext-111122223333", details["aws_external_id"])
}

func TestRegisterFailureCarriesServerMessage(t *testing.T) {
	fake := newFakeAPI(t)
	fake.registerStatus = func(string) int { return 403 }
	registrar := newRegistrar(fake.authedClient(t), false)

	outcome := registrar.register(enrichedFixture("111122223333", "us-east-1"))

	assert.False(t, outcome.success)
	assert.Equal(t, "registration rejected", outcome.record.Error)
}

func TestRegisterAllIndependentFailures(t *testing.T) {
	fake := newFakeAPI(t)
	failing := registryURL("444455556666", "us-east-1")
	fake.registerStatus = func(url string) int {
		if url == failing {
			return 500
		}
		return 201
	}

	registrar := newRegistrar(fake.authedClient(t), false)
	outcomes := registrar.registerAll([]enrichedRegistry{
		enrichedFixture("111122223333", "us-east-1"),
		enrichedFixture("444455556666", "us-east-1"),
		enrichedFixture("777788889999", "us-east-1"),
	}, 1)

	require.Len(t, outcomes, 3, "one failure must not block the rest of the batch")

	succeeded, failed := 0, 0
	for _, outcome := range outcomes {
		if outcome.success {
			succeeded++
		} else {
			failed++
			assert.Equal(t, failing, outcome.record.URL)
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, failed)
}

func TestRegisterAllBoundedPool(t *testing.T) {
	fake := newFakeAPI(t)
	registrar := newRegistrar(fake.authedClient(t), false)

	outcomes := registrar.registerAll([]enrichedRegistry{
		enrichedFixture("111122223333", "us-east-1"),
		enrichedFixture("444455556666", "us-east-1"),
		enrichedFixture("777788889999", "us-east-1"),
	}, 3)

	require.Len(t, outcomes, 3)
	assert.Len(t, fake.registerCalls, 3)
	for _, outcome := range outcomes {
		assert.True(t, outcome.success)
	}
}

func TestRegisterDryRunSkipsMutatingCall(t *testing.T) {
	fake := newFakeAPI(t)
	registrar := newRegistrar(fake.authedClient(t), true)

	outcome := registrar.register(enrichedFixture("111122223333", "us-east-1"))

	assert.True(t, outcome.success)
	assert.Equal(t, dryRunRegistryID, outcome.record.RegistryID)
	assert.Empty(t, fake.registerCalls, "dry run must not issue the create call")
}

func TestDeregisterDeletesByID(t *testing.T) {
	fake := newFakeAPI(t)
	registrar := newRegistrar(fake.authedClient(t), false)

	outcome := registrar.deregister(existingRegistration{
		id:        "reg-9",
		url:       registryURL("111122223333", "us-east-1"),
		accountID: "111122223333",
		state:     "offline",
	})

	require.True(t, outcome.success)
	require.Len(t, fake.deleteCalls, 1)
	assert.Equal(t, []string{"reg-9"}, fake.deleteCalls[0])
}

func TestDeregisterFailureOutcome(t *testing.T) {
	fake := newFakeAPI(t)
	fake.deleteStatus = 409
	registrar := newRegistrar(fake.authedClient(t), false)

	outcome := registrar.deregister(existingRegistration{id: "reg-9", url: "u", accountID: "a"})

	assert.False(t, outcome.success)
	assert.Equal(t, "deletion rejected", outcome.record.Error)
}

func TestDeregisterDryRunSkipsMutatingCall(t *testing.T) {
	fake := newFakeAPI(t)
	registrar := newRegistrar(fake.authedClient(t), true)

	outcome := registrar.deregister(existingRegistration{id: "reg-9", url: "u", accountID: "a"})

	assert.True(t, outcome.success)
	assert.Equal(t, dryRunRegistryID, outcome.record.RegistryID)
	assert.Empty(t, fake.deleteCalls)
}

func TestRegisterTransportErrorBecomesOutcome(t *testing.T) {
	fake := newFakeAPI(t)
	registrar := newRegistrar(fake.authedClient(t), false)
	fake.server.Close()

	outcome := registrar.register(enrichedFixture("111122223333", "us-east-1"))

	assert.False(t, outcome.success)
	assert.NotEmpty(t, outcome.record.Error)
}
