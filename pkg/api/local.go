package api

import (
	"context"
	"errors"
	"net/http"

	"ringlink/pkg/federation"
	"ringlink/pkg/presentation"
	"ringlink/pkg/storage"
	"ringlink/pkg/types"

	"github.com/gin-gonic/gin"
)

type localRateRequest struct {
	RingID    string `json:"ring_id"`
	TargetURL string `json:"target_url"`
	Rating    int    `json:"rating"`
}

func (s *Server) localRate(c *gin.Context) {
	var req localRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	err := s.ratings.SubmitRating(c.Request.Context(), federation.RateInput{
		RingID:    req.RingID,
		TargetURL: req.TargetURL,
		Rating:    req.Rating,
		Origin:    federation.OriginLocal,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, federation.RateResponse{Status: "rated"})
}

// ringView is the name and member list of a hosted or joined ring.
type ringView struct {
	id      string
	name    string
	members []types.Member
}

func (s *Server) lookup(ctx context.Context, ringID string) (ringView, error) {
	target, err := s.ratings.Resolve(ctx, ringID)
	if err != nil {
		return ringView{}, err
	}
	switch t := target.(type) {
	case federation.HostedTarget:
		return ringView{id: t.Ring.ID, name: t.Ring.Name, members: t.Ring.Members}, nil
	case federation.JoinedTarget:
		return ringView{id: t.Ring.Key, name: t.Ring.Name, members: t.Ring.Members}, nil
	}
	return ringView{}, errors.New("unknown ring target")
}

// selfURL is empty until the site identity is saved.
func (s *Server) selfURL(ctx context.Context) (string, error) {
	site, err := s.store.GetSite(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	return site.URL, err
}

func (s *Server) widget(c *gin.Context) {
	ctx := c.Request.Context()
	ring, err := s.lookup(ctx, c.Param("ring_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	self, err := s.selfURL(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	defaults, err := s.store.GetDisplay(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	display, err := presentation.ResolveDisplay(defaults, types.DisplaySettings{
		Mode:  types.DisplayMode(c.Query("mode")),
		Theme: types.Theme(c.Query("theme")),
		Width: types.Width(c.Query("width")),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, federation.ErrorBody{
			Code:    string(federation.KindValidation),
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, presentation.BuildWidget(ring.id, ring.name, ring.members, self, display))
}

func (s *Server) randomMember(c *gin.Context) {
	ctx := c.Request.Context()
	ring, err := s.lookup(ctx, c.Param("ring_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	self, err := s.selfURL(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	active := presentation.ActiveMembers(ring.members)
	i := presentation.RandomIndex(active, self, s.intn)
	if i < 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, federation.ErrorBody{
			Code:    string(federation.KindNotFound),
			Message: "ring has no active members",
		})
		return
	}
	c.JSON(http.StatusOK, active[i].Identity)
}
