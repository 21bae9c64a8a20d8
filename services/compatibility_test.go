package services_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fabricaware/workorder-app/models"
	"github.com/fabricaware/workorder-app/services"
)

func TestTemplateCompatible(t *testing.T) {
	cases := []struct {
		orderKind    string
		templateKind string
		want         bool
	}{
		{models.OrderKindProduction, models.TemplateUsageProduction, true},
		{models.OrderKindProduction, models.TemplateUsageProcessing, false},
		{models.OrderKindProduction, models.TemplateUsageBoth, true},
		{models.OrderKindProcessing, models.TemplateUsageProduction, false},
		{models.OrderKindProcessing, models.TemplateUsageProcessing, true},
		{models.OrderKindProcessing, models.TemplateUsageBoth, true},
	}
	for _, tc := range cases {
		got := services.TemplateCompatible(tc.orderKind, tc.templateKind)
		assert.Equalf(t, tc.want, got, "order %s, template %s", tc.orderKind, tc.templateKind)
	}
}

func TestCheckTemplateApplyReportsReason(t *testing.T) {
	err := services.CheckTemplateApply(models.OrderKindProcessing, models.TemplateUsageProduction)
	assert.Error(t, err)

	var compat *services.CompatibilityError
	assert.True(t, errors.As(err, &compat))
	assert.Equal(t, models.OrderKindProcessing, compat.OrderKind)
	assert.Equal(t, models.TemplateUsageProduction, compat.TemplateKind)

	assert.NoError(t, services.CheckTemplateApply(models.OrderKindProcessing, models.TemplateUsageBoth))
}

func TestDefaultTemplate(t *testing.T) {
	assert.True(t, services.DefaultTemplate(models.OrderKindProduction, true, false))
	assert.False(t, services.DefaultTemplate(models.OrderKindProduction, false, true))
	assert.True(t, services.DefaultTemplate(models.OrderKindProcessing, false, true))

	// No kind filter: either flag qualifies.
	assert.True(t, services.DefaultTemplate("", true, false))
	assert.True(t, services.DefaultTemplate("", false, true))
	assert.False(t, services.DefaultTemplate("", false, false))
}
