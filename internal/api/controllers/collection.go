package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/datallboy/gocol/internal/app"
	"github.com/datallboy/gocol/internal/catalog"
	"github.com/datallboy/gocol/internal/domain"
	"github.com/labstack/echo/v5"
)

// ServerHeader is what a console's transfer service answers with.
const ServerHeader = "Microsoft-HTTPAPI/2.0"

type CollectionController struct {
	App     *app.Context
	Catalog *catalog.Catalog
}

// HandleMetadata returns the manifest.
func (ctrl *CollectionController) HandleMetadata(c *echo.Context) error {
	return c.JSON(http.StatusOK, ctrl.Catalog.Metadata())
}

// HandleContent serves an item, whole or a single byte range.
func (ctrl *CollectionController) HandleContent(c *echo.Context) error {
	key, err := domain.ParseContentPath(c.Request().URL.EscapedPath())
	if err != nil {
		return ctrl.fail(c, err)
	}

	f, total, err := ctrl.Catalog.Open(key)
	if err != nil {
		return ctrl.fail(c, err)
	}
	defer f.Close()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, echo.MIMEOctetStream)
	w.Header().Set("Accept-Ranges", "bytes")

	r, partial, err := domain.ParseRangeHeader(c.Request().Header.Get("Range"), total)
	if err != nil {
		w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(total, 10))
		return c.NoContent(http.StatusRequestedRangeNotSatisfiable)
	}

	status := http.StatusOK
	var body io.Reader = f
	length := total

	if partial {
		status = http.StatusPartialContent
		body = io.NewSectionReader(f, r.First, r.Count())
		length = r.Count()
		w.Header().Set("Content-Range", r.ContentRange(total))
	}

	w.Header().Set(echo.HeaderContentLength, strconv.FormatInt(length, 10))
	w.WriteHeader(status)

	if n, err := io.CopyN(w, body, length); err != nil {
		// headers are gone; all that is left is to note the short write
		ctrl.App.Logger.Warn("Short write for %s: %d of %d bytes: %v", key.Filename, n, length, err)
	}
	return nil
}

func (ctrl *CollectionController) fail(c *echo.Context, err error) error {
	status := domain.StatusOf(err)
	if status >= http.StatusInternalServerError {
		ctrl.App.Logger.Error("Content request %s failed: %v", c.Request().URL.EscapedPath(), err)
		return c.String(status, http.StatusText(status))
	}

	var reqErr *domain.RequestError
	if errors.As(err, &reqErr) && reqErr.Err != nil {
		err = reqErr.Err
	}
	return c.String(status, err.Error())
}
