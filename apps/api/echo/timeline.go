package echoapi

import (
	"net/http"
	"net/mail"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lichsu/core"
	"github.com/trezcool/lichsu/core/timeline"
)

type timelineApi struct {
	svc     *timeline.Service
	mailSvc core.EmailService
	conf    *core.Config
}

func registerTimelineAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	admin echo.MiddlewareFunc,
	svc *timeline.Service,
	mailSvc core.EmailService,
	conf *core.Config,
) {
	api := timelineApi{svc: svc, mailSvc: mailSvc, conf: conf}

	// public endpoints
	g.GET("/timeline", api.timeline)
	g.GET("/timeline/topics", api.topics)
	g.GET("/stages", api.queryStages)
	g.GET("/stages/:id", api.retrieveStage)

	// admin endpoints
	authed := []echo.MiddlewareFunc{jwt, admin}
	g.POST("/stages", api.createStage, authed...)
	g.PUT("/stages/:id", api.updateStage, authed...)
	g.POST("/stages/:id/events", api.appendEvent, authed...)
	g.PUT("/stages/:id/events/:eventID", api.updateEvent, authed...)

	g.GET("/extra-events", api.queryExtraEvents, authed...)
	g.POST("/extra-events", api.createExtraEvent, authed...)
	g.PUT("/extra-events/:id", api.updateExtraEvent, authed...)

	g.GET("/hidden", api.queryHidden, authed...)
	g.POST("/hidden", api.hide, authed...)
	g.DELETE("/hidden/:id", api.unhide, authed...)

	g.GET("/reports/orphans", api.orphans, authed...)
	g.POST("/reports/orphans/notify", api.notifyOrphans, authed...)
	g.GET("/reports/duplicates", api.duplicates, authed...)
}

// Handlers

func (api *timelineApi) timeline(ctx echo.Context) error {
	f := timeline.Filter{
		Search: ctx.QueryParam("search"),
		Topic:  timeline.TopicID(ctx.QueryParam("topic")),
	}
	view, err := api.svc.Timeline(f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *timelineApi) topics(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, timeline.Topics)
}

func (api *timelineApi) queryStages(ctx echo.Context) error {
	view, err := api.svc.Timeline(timeline.Filter{})
	if err != nil {
		return errors.Wrap(err, "computing timeline")
	}
	return ctx.JSON(http.StatusOK, view.Stages)
}

func (api *timelineApi) retrieveStage(ctx echo.Context) error {
	stg, err := api.svc.Stage(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stg)
}

func (api *timelineApi) createStage(ctx echo.Context) error {
	var data timeline.NewStage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStage")
	}
	stg, err := api.svc.CreateStage(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating stage")
	}
	return ctx.JSON(http.StatusCreated, stg)
}

func (api *timelineApi) updateStage(ctx echo.Context) error {
	var data timeline.UpdateStage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStage")
	}
	stg, err := api.svc.UpdateStage(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating stage")
	}
	return ctx.JSON(http.StatusOK, stg)
}

func (api *timelineApi) appendEvent(ctx echo.Context) error {
	var data timeline.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	evt, err := api.svc.AppendEvent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "appending event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *timelineApi) updateEvent(ctx echo.Context) error {
	var data timeline.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	evt, err := api.svc.UpdateEvent(ctx.Request().Context(), ctx.Param("id"), ctx.Param("eventID"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *timelineApi) queryExtraEvents(ctx echo.Context) error {
	extras, err := api.svc.ExtraEvents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying extra events")
	}
	return ctx.JSON(http.StatusOK, extras)
}

func (api *timelineApi) createExtraEvent(ctx echo.Context) error {
	var data timeline.NewExtraEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExtraEvent")
	}
	extra, err := api.svc.CreateExtraEvent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating extra event")
	}
	return ctx.JSON(http.StatusCreated, extra)
}

func (api *timelineApi) updateExtraEvent(ctx echo.Context) error {
	var data timeline.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	extra, err := api.svc.UpdateExtraEvent(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating extra event")
	}
	return ctx.JSON(http.StatusOK, extra)
}

func (api *timelineApi) queryHidden(ctx echo.Context) error {
	hidden, err := api.svc.HiddenIDs(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying hidden ids")
	}
	ids := hidden.IDs()
	sort.Strings(ids)
	return ctx.JSON(http.StatusOK, ids)
}

func (api *timelineApi) hide(ctx echo.Context) error {
	var data timeline.HideRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to HideRequest")
	}
	if err := api.svc.Hide(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "hiding ids")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *timelineApi) unhide(ctx echo.Context) error {
	if err := api.svc.Unhide(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "unhiding id")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *timelineApi) orphans(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Orphans())
}

// notifyOrphans emails the orphan report to the admin allow-list.
func (api *timelineApi) notifyOrphans(ctx echo.Context) error {
	orphans := api.svc.Orphans()
	if len(orphans) > 0 {
		api.mailSvc.SendMessages(NewOrphansMessage(api.conf, orphans))
	}
	return ctx.JSON(http.StatusAccepted, echo.Map{"orphans": len(orphans)})
}

func (api *timelineApi) duplicates(ctx echo.Context) error {
	threshold := timeline.DefaultDuplicateThreshold
	if s := ctx.QueryParam("threshold"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 || v > 1 {
			return core.NewValidationError(nil, core.FieldError{Field: "threshold", Error: "must be a number in (0, 1]"})
		}
		threshold = v
	}
	return ctx.JSON(http.StatusOK, api.svc.Duplicates(threshold))
}

// NewOrphansMessage builds the orphan report email sent to the admin allow-list.
func NewOrphansMessage(conf *core.Config, orphans []timeline.ExtraEvent) *core.EmailMessage {
	to := make([]mail.Address, 0, len(conf.AdminEmails))
	for _, email := range conf.AdminEmails {
		to = append(to, mail.Address{Address: email})
	}
	return &core.EmailMessage{
		To:           to,
		Subject:      "Supplementary events without a stage",
		TemplateName: "orphans",
		TemplateData: orphans,
	}
}
