package httpapi

import (
	"net/http"
	"strconv"
	"testing"

	"worshipScheduling/models"
)

func TestUsers_AdminOnly(t *testing.T) {
	ts := newTestServer(t, "httpapiusersadmin")
	before := count(t, ts.orm, &models.User{})

	if rec := ts.do(t, http.MethodGet, "/api/users", ts.musician, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("musician list: %d", rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/users", ts.musician, map[string]any{"name": "X", "username": "x", "email": "x@x.io", "password": "p"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("musician create: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/api/users/"+strconv.FormatInt(ts.admin.ID, 10), ts.musician, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("musician delete: %d", rec.Code)
	}
	if after := count(t, ts.orm, &models.User{}); after != before {
		t.Fatalf("forbidden calls changed the database: %d -> %d", before, after)
	}
}

func TestUsers_CreateAndList(t *testing.T) {
	ts := newTestServer(t, "httpapiuserscreate")

	rec := ts.do(t, http.MethodPost, "/api/users", ts.admin, map[string]any{
		"name": "Ana", "username": "ana", "email": "ana@x.io", "password": "p", "instruments": []string{"violão", "voz"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[map[string]any](t, rec)
	if _, leaked := created["password"]; leaked {
		t.Fatalf("password serialized: %v", created)
	}

	rec = ts.do(t, http.MethodPost, "/api/users", ts.admin, map[string]any{"name": "Ana", "username": "ana", "email": "other@x.io", "password": "p"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/users", ts.admin, map[string]any{"name": "NoMail", "username": "nomail", "password": "p"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing email: %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/users", ts.admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	list := decode[[]models.User](t, rec)
	if len(list) != 2 || list[0].Username != "ana" || list[1].Username != "maria" {
		t.Fatalf("musicians ordered by name: %+v", list)
	}
	if len(list[0].Instruments) != 2 || list[0].Instruments[0].Instrument != "VIOLÃO" {
		t.Fatalf("instruments upper-cased: %+v", list[0].Instruments)
	}
	if rec := ts.do(t, http.MethodGet, "/api/users?role=all", ts.admin, nil); len(decode[[]models.User](t, rec)) != 3 {
		t.Fatalf("role=all: %s", rec.Body.String())
	}
	if rec := ts.do(t, http.MethodGet, "/api/users?role=root", ts.admin, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad role filter: %d", rec.Code)
	}
}

func TestUsers_Update(t *testing.T) {
	ts := newTestServer(t, "httpapiusersupdate")
	self := "/api/users/" + strconv.FormatInt(ts.musician.ID, 10)
	adminPath := "/api/users/" + strconv.FormatInt(ts.admin.ID, 10)

	rec := ts.do(t, http.MethodPut, self, ts.musician, map[string]any{"name": "Maria S", "username": "maria", "email": "m@x.io", "instruments": []string{"baixo"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("self update: %d %s", rec.Code, rec.Body.String())
	}
	u := decode[models.User](t, rec)
	if u.Name != "Maria S" || len(u.Instruments) != 1 || u.Instruments[0].Instrument != "BAIXO" {
		t.Fatalf("updated user: %+v", u)
	}

	if rec := ts.do(t, http.MethodPut, adminPath, ts.musician, map[string]any{"name": "x", "username": "x", "email": "x@x.io"}); rec.Code != http.StatusForbidden {
		t.Fatalf("musician updating someone else: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPut, self, ts.musician, map[string]any{"name": "M", "username": "maria", "email": "m@x.io", "role": "admin"}); rec.Code != http.StatusForbidden {
		t.Fatalf("musician promoting self: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPut, self, ts.musician, map[string]any{"name": "M", "username": "admin", "email": "m@x.io"}); rec.Code != http.StatusConflict {
		t.Fatalf("username clash: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPut, self, ts.musician, map[string]any{"name": "M"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPut, self, ts.admin, map[string]any{"name": "Maria", "username": "maria", "email": "m@x.io", "role": "admin", "password": "new"})
	if rec.Code != http.StatusOK || decode[models.User](t, rec).Role != models.RoleAdmin {
		t.Fatalf("admin promoting: %d %s", rec.Code, rec.Body.String())
	}
	var stored models.User
	ts.orm.Preload("Instruments").First(&stored, ts.musician.ID)
	if len(stored.Instruments) != 1 {
		t.Fatalf("instruments omitted from body should be kept: %+v", stored.Instruments)
	}
	if rec := ts.do(t, http.MethodPut, "/api/users/9999", ts.admin, map[string]any{"name": "x", "username": "x", "email": "x@x.io"}); rec.Code != http.StatusNotFound {
		t.Fatalf("missing user: %d", rec.Code)
	}
}

func TestUsers_Delete(t *testing.T) {
	ts := newTestServer(t, "httpapiusersdelete")
	if rec := ts.do(t, http.MethodDelete, "/api/users/"+strconv.FormatInt(ts.admin.ID, 10), ts.admin, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("self delete: %d", rec.Code)
	}
	path := "/api/users/" + strconv.FormatInt(ts.musician.ID, 10)
	if rec := ts.do(t, http.MethodDelete, path, ts.admin, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	if rec := ts.do(t, http.MethodDelete, path, ts.admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("delete again: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, "/api/users/abc", ts.admin, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
}

func TestUsers_DemotedAdminRefused(t *testing.T) {
	ts := newTestServer(t, "httpapiusersdemoted")
	stale := *ts.admin
	ts.orm.Model(&models.User{}).Where("id = ?", ts.admin.ID).Update("role", models.RoleMusician)
	if rec := ts.do(t, http.MethodGet, "/api/users", &stale, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("stale admin token: %d", rec.Code)
	}
}
