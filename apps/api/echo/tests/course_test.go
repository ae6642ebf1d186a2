package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/educa/apps/api/echo"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
	testutil "github.com/trezcool/educa/tests"
)

func Test_courseApi_subjects(t *testing.T) {
	app := setup(t)

	maths := testutil.CreateSubject(t, crsRepo, "Mathematics", "mathematics")
	music := testutil.CreateSubject(t, crsRepo, "Music", "music")

	tests := []httpTest{
		{
			name: "list is public", method: http.MethodGet, path: "/api/subjects",
			wantCode: http.StatusOK, wantData: marchallList(t, maths, music),
		},
		{
			name: "detail", method: http.MethodGet, path: "/api/subjects/" + music.ID,
			wantCode: http.StatusOK, wantData: marchallObj(t, music),
		},
		{
			name: "unknown subject", method: http.MethodGet, path: "/api/subjects/lol",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_ownershipScoping(t *testing.T) {
	app := setup(t)

	sub := testutil.CreateSubject(t, crsRepo, "Music", "music")
	p1 := testutil.CreateUser(t, usrRepo, "P One", "pone", "pone@test.cd", "S3cret!pass", nil, true)
	p2 := testutil.CreateUser(t, usrRepo, "P Two", "ptwo", "ptwo@test.cd", "S3cret!pass", nil, true)
	crs1 := testutil.CreateCourse(t, crsRepo, p1, sub, "Guitar 101", "guitar-101", "Strings for beginners")
	crs2 := testutil.CreateCourse(t, crsRepo, p2, sub, "Drums 101", "drums-101", "Hit things")

	p1Token := getToken(t, p1)
	p2Token := getToken(t, p2)
	notFound := marchallObj(t, errNotFound)

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodGet, path: "/api/courses",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "list only owned", method: http.MethodGet, path: "/api/courses", token: p1Token,
			wantCode: http.StatusOK, wantData: marchallList(t, crs1),
		},
		{
			name: "retrieve owned", method: http.MethodGet, path: "/api/courses/" + crs1.ID, token: p1Token,
			wantCode: http.StatusOK, wantData: marchallObj(t, crs1),
		},
		{
			name: "someone else's course is a 404, not a 403", method: http.MethodGet,
			path: "/api/courses/" + crs2.ID, token: p1Token,
			wantCode: http.StatusNotFound, wantData: notFound,
		},
		{
			name: "unknown course", method: http.MethodGet, path: "/api/courses/lol", token: p1Token,
			wantCode: http.StatusNotFound, wantData: notFound,
		},
		{
			name: "update someone else's course", method: http.MethodPut,
			path: "/api/courses/" + crs1.ID, token: p2Token,
			body:     marchallObj(t, course.UpdateCourse{Title: "Hijacked"}),
			wantCode: http.StatusNotFound, wantData: notFound,
		},
		{
			name: "delete someone else's course", method: http.MethodDelete,
			path: "/api/courses/" + crs2.ID, token: p1Token,
			wantCode: http.StatusNotFound, wantData: notFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("update own course", func(t *testing.T) {
		body := marchallObj(t, course.UpdateCourse{Title: "Guitar 102"})
		req, rec := newAuthRequest(http.MethodPut, "/api/courses/"+crs1.ID, p1Token, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated course.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Guitar 102", updated.Title)
		assert.Equal(t, crs1.Slug, updated.Slug, "unset fields keep their values")
		assert.Equal(t, p1.ID, updated.OwnerID)
	})

	t.Run("delete own course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/courses/"+crs2.ID, p2Token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	})
}

func Test_courseApi_create(t *testing.T) {
	app := setup(t)

	sub := testutil.CreateSubject(t, crsRepo, "Music", "music")
	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@test.cd", "S3cret!pass", nil, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.cd", "S3cret!pass", nil, true)
	ownerToken := getToken(t, owner)

	t.Run("create forces the authenticated owner", func(t *testing.T) {
		body := marchallObj(t, course.NewCourse{
			Subject:  sub.ID,
			Title:    "Guitar 101",
			Slug:     "guitar-101",
			Overview: "Strings for beginners",
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/courses", ownerToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var crs course.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crs))
		assert.Equal(t, owner.ID, crs.OwnerID)
		assert.NotEmpty(t, crs.ID)
	})

	tests := []httpTest{
		{
			name: "unknown subject", body: marchallObj(t, course.NewCourse{
				Subject: "lol", Title: "T", Slug: "t-course", Overview: "O",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"subject": "subject not found"}),
		},
		{
			name: "duplicate slug", body: marchallObj(t, course.NewCourse{
				Subject: sub.ID, Title: "Copycat", Slug: "guitar-101", Overview: "O",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"slug": "a course with this slug already exists"}),
		},
		{
			name: "invalid slug", body: marchallObj(t, course.NewCourse{
				Subject: sub.ID, Title: "T", Slug: "Not A Slug!", Overview: "O",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing fields",
			body:     marchallObj(t, course.NewCourse{Title: "T"}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/courses", getToken(t, other), tt.body)
			app.ServeHTTP(rec, req)
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			} else {
				assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			}
		})
	}
}

func Test_courseApi_enrollment(t *testing.T) {
	app := setup(t)

	sub := testutil.CreateSubject(t, crsRepo, "Music", "music")
	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@test.cd", "S3cret!pass", nil, true)
	student := testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "S3cret!pass", []string{user.RoleStudent}, true)
	crs := testutil.CreateCourse(t, crsRepo, owner, sub, "Guitar 101", "guitar-101", "Strings for beginners")

	studentToken := getToken(t, student)
	enrolled := marchallObj(t, EnrollResponse{Enrolled: true})

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/api/courses/" + crs.ID + "/enroll",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "unknown course", method: http.MethodPost, path: "/api/courses/lol/enroll", token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "enroll", method: http.MethodPost, path: "/api/courses/" + crs.ID + "/enroll", token: studentToken,
			wantCode: http.StatusOK, wantData: enrolled,
		},
		{
			name: "enrolling twice reports the same result", method: http.MethodPost,
			path: "/api/courses/" + crs.ID + "/enroll", token: studentToken,
			wantCode: http.StatusOK, wantData: enrolled,
		},
		{
			name: "enrolled list", method: http.MethodGet, path: "/api/courses/enrolled", token: studentToken,
			wantCode: http.StatusOK, wantData: marchallList(t, crs),
		},
		{
			name: "enrolled detail", method: http.MethodGet, path: "/api/courses/enrolled/" + crs.ID, token: studentToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, crs),
		},
		{
			name: "enrolled detail misses un-enrolled courses", method: http.MethodGet,
			path: "/api/courses/enrolled/" + crs.ID, token: getToken(t, owner),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_listNewestFirst(t *testing.T) {
	app := setup(t)

	sub := testutil.CreateSubject(t, crsRepo, "Music", "music")
	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner", "owner@test.cd", "S3cret!pass", nil, true)
	crs1 := testutil.CreateCourse(t, crsRepo, owner, sub, "First", "first-course", "O")
	crs2 := testutil.CreateCourse(t, crsRepo, owner, sub, "Second", "second-course", "O")
	crs3 := testutil.CreateCourse(t, crsRepo, owner, sub, "Third", "third-course", "O")

	req, rec := newAuthRequest(http.MethodGet, "/api/courses", getToken(t, owner))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var courses []course.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
	require.Len(t, courses, 3)
	assert.Equal(t, []string{crs3.ID, crs2.ID, crs1.ID}, []string{courses[0].ID, courses[1].ID, courses[2].ID})
}
