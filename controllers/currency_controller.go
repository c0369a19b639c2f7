package controllers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"catalog-admin/services"

	"github.com/gin-gonic/gin"
)

// CurrencyController exposes the display-rate conversion used by the
// dashboard's price columns.
type CurrencyController struct {
	converter *services.CurrencyConverter
}

func NewCurrencyController(converter *services.CurrencyConverter) *CurrencyController {
	return &CurrencyController{converter: converter}
}

func (ctrl *CurrencyController) Convert(c *gin.Context) {
	amountStr := strings.TrimSpace(c.Query("amount"))
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	from := c.DefaultQuery("from", "USD")
	to := c.DefaultQuery("to", "USD")

	converted, err := ctrl.converter.Convert(amount, from, to)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"amount":    amount,
		"from":      strings.ToUpper(from),
		"to":        strings.ToUpper(to),
		"converted": converted,
	})
}

func (ctrl *CurrencyController) ListCurrencies(c *gin.Context) {
	codes := ctrl.converter.Codes()
	sort.Strings(codes)
	c.JSON(http.StatusOK, gin.H{"currencies": codes})
}
