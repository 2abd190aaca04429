package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/younsl/ec2spot/internal/models"
	"github.com/younsl/ec2spot/internal/version"
	"github.com/younsl/ec2spot/pkg/instances"
	"github.com/younsl/ec2spot/pkg/pricing"
	"github.com/younsl/ec2spot/pkg/spot"
)

// wrap builds the response envelope shared by the instance routes.
// expireAt is Unix seconds, or null before the first successful fetch.
func (s *Server) wrap(ds *models.Dataset, key string, value any) gin.H {
	h := gin.H{
		"expireAt":    nil,
		"fetchedFrom": s.instances.Location(),
		key:           value,
	}
	if ds != nil {
		h["expireAt"] = ds.ExpireAt.Unix()
		h["fetchedFrom"] = ds.FetchedFrom
	}
	return h
}

// wrapPrices builds the envelope of the price routes. Prices are live, so
// they expire the moment they are fetched.
func (s *Server) wrapPrices(fetchedAt time.Time, prices models.Prices) gin.H {
	return gin.H{
		"expireAt":    fetchedAt.Unix(),
		"fetchedFrom": s.spot.Location(),
		"prices":      prices,
	}
}

// abortWithError answers with status and the wrapped payload plus an error message
func abortWithError(c *gin.Context, status int, body gin.H, err error) {
	_ = c.Error(err)
	body["error"] = err.Error()
	c.AbortWithStatusJSON(status, body)
}

func (s *Server) getHealth(c *gin.Context) {
	ds := s.instances.Snapshot()
	status := gin.H{
		"status":        "ok",
		"service":       "ec2spot",
		"instanceTypes": ds.Len(),
		"expireAt":      nil,
		"fetchedFrom":   s.instances.Location(),
	}
	if ds != nil {
		status["expireAt"] = ds.ExpireAt.Unix()
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}

func (s *Server) getInstances(c *gin.Context) {
	ds, err := s.instances.GetAll(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusBadGateway, s.wrap(ds, "instances", nil), err)
		return
	}
	c.JSON(http.StatusOK, s.wrap(ds, "instances", ds.Instances))
}

func (s *Server) getInstanceTypes(c *gin.Context) {
	filters := instances.ParseFilters(c.Query)

	names, ds, err := s.instances.GetTypes(c.Request.Context(), filters)
	if err != nil {
		abortWithError(c, http.StatusBadGateway, s.wrap(ds, "instanceTypes", nil), err)
		return
	}
	c.JSON(http.StatusOK, s.wrap(ds, "instanceTypes", names))
}

func (s *Server) getInstanceType(c *gin.Context) {
	name := c.Param("name")

	record, ds, err := s.instances.GetType(c.Request.Context(), name)
	switch {
	case errors.Is(err, instances.ErrNotFound):
		abortWithError(c, http.StatusNotFound, s.wrap(ds, "instanceType", nil), err)
		return
	case err != nil:
		abortWithError(c, http.StatusBadGateway, s.wrap(ds, "instanceType", nil), err)
		return
	}
	c.JSON(http.StatusOK, s.wrap(ds, "instanceType", record))
}

func (s *Server) getPrices(c *gin.Context) {
	requested := splitInstanceTypes(c.Query("instanceTypes"))

	prices, fetchedAt, err := s.spot.GetPrices(c.Request.Context(), requested)
	switch {
	case errors.Is(err, spot.ErrUnknownInstanceType):
		abortWithError(c, http.StatusNotFound, s.wrapPrices(fetchedAt, nil), err)
		return
	case err != nil:
		abortWithError(c, http.StatusBadGateway, s.wrapPrices(fetchedAt, nil), err)
		return
	}
	c.JSON(http.StatusOK, s.wrapPrices(fetchedAt, prices))
}

func (s *Server) getInstancePrices(c *gin.Context) {
	name := c.Param("name")

	prices, fetchedAt, err := s.spot.GetPrices(c.Request.Context(), []string{name})
	switch {
	case errors.Is(err, spot.ErrUnknownInstanceType):
		abortWithError(c, http.StatusNotFound, s.wrapPrices(fetchedAt, nil), err)
		return
	case err != nil:
		abortWithError(c, http.StatusBadGateway, s.wrapPrices(fetchedAt, nil), err)
		return
	case len(prices[name]) == 0:
		c.JSON(http.StatusNotFound, s.wrapPrices(fetchedAt, nil))
		return
	}
	c.JSON(http.StatusOK, s.wrapPrices(fetchedAt, models.Prices{name: prices[name]}))
}

func (s *Server) getOnDemandPrice(c *gin.Context) {
	if s.onDemand == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "on-demand pricing not configured"})
		return
	}

	name := c.Param("name")
	region := c.DefaultQuery("region", s.spot.Region())

	price, err := s.onDemand.GetOnDemandPrice(c.Request.Context(), name, region)
	switch {
	case errors.Is(err, pricing.ErrNoPrice):
		abortWithError(c, http.StatusNotFound, gin.H{"instanceType": name, "region": region, "price": nil}, err)
		return
	case err != nil:
		abortWithError(c, http.StatusBadGateway, gin.H{"instanceType": name, "region": region, "price": nil}, err)
		return
	}
	c.JSON(http.StatusOK, price)
}

// splitInstanceTypes parses a comma separated list, dropping empty items
func splitInstanceTypes(value string) []string {
	var types []string
	for _, t := range strings.Split(value, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}
