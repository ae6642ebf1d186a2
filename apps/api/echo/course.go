package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

type courseApi struct {
	svc        course.Service
	usrSvc     user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:        deps.CourseSvc,
		usrSvc:     deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	// the subject catalog is public
	sg := g.Group("/subjects")
	sg.GET("", api.querySubjects)
	sg.GET("/:id", api.retrieveSubject)

	// course management is scoped to the authenticated owner: a course owned
	// by someone else looks exactly like a missing one (404).
	cg := g.Group("/courses", jwt)
	cg.GET("", api.list)
	cg.POST("", api.create)
	cg.GET("/enrolled", api.enrolledList)
	cg.GET("/enrolled/:id", api.enrolledRetrieve)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy)
	cg.POST("/:id/enroll", api.enroll)
}

// Handlers

func (api *courseApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.svc.Subjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []course.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *courseApi) retrieveSubject(ctx echo.Context) error {
	sub, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *courseApi) list(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	courses, err := api.svc.List(ctx.Request().Context(), owner)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), owner, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Get(ctx.Request().Context(), owner, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	// the update falls back to the current values for unset fields
	orig, err := api.svc.Get(ctx.Request().Context(), owner, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Update(ctx.Request().Context(), owner, orig.ID, data)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	owner, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), owner, ctx.Param("id")); err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// enroll adds the authenticated user to a course's students. Enrolling twice
// is fine and reports the same result.
func (api *courseApi) enroll(ctx echo.Context) error {
	student, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Enroll(ctx.Request().Context(), student, ctx.Param("id")); err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusOK, EnrollResponse{Enrolled: true})
}

func (api *courseApi) enrolledList(ctx echo.Context) error {
	student, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	courses, err := api.svc.EnrolledCourses(ctx.Request().Context(), student)
	if err != nil {
		return errors.Wrap(err, "querying enrolled courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) enrolledRetrieve(ctx echo.Context) error {
	student, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.EnrolledCourse(ctx.Request().Context(), student, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding enrolled course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

type EnrollResponse struct {
	Enrolled bool `json:"enrolled"`
}
