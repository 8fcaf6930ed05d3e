package api

import (
	"errors"
	"net/http"

	"ringlink/pkg/federation"
	"ringlink/pkg/storage"

	"github.com/gin-gonic/gin"
)

func (s *Server) ping(c *gin.Context) {
	resp := federation.PingResponse{Status: "ok", Version: federation.Version}
	site, err := s.store.GetSite(c.Request.Context())
	switch {
	case err == nil:
		resp.SiteName = site.Name
	case !errors.Is(err, storage.ErrNotFound):
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getRing(c *gin.Context) {
	snap, err := s.membership.Snapshot(c.Request.Context(),
		c.Param("ring_id"), c.Query("secret"), c.Query("member"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) join(c *gin.Context) {
	var req federation.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	status, err := s.membership.RequestJoin(c.Request.Context(), c.Param("ring_id"), req.Identity(), req.Secret)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, federation.JoinResponse{Status: status})
}

func (s *Server) rate(c *gin.Context) {
	var req federation.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	err := s.ratings.SubmitRating(c.Request.Context(), federation.RateInput{
		RingID:    c.Param("ring_id"),
		TargetURL: req.TargetURL,
		Rating:    req.Rating,
		RaterURL:  req.RaterURL,
		Origin:    federation.OriginFederation,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, federation.RateResponse{Status: "rated"})
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
