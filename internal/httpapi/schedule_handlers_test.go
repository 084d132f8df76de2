package httpapi

import (
	"fmt"
	"net/http"
	"testing"

	"worshipScheduling/models"
	"worshipScheduling/repository"
)

func (ts *testServer) createSchedule(t *testing.T, body any) models.Schedule {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/schedules", ts.admin, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create schedule: %d %s", rec.Code, rec.Body.String())
	}
	return decode[models.Schedule](t, rec)
}

func TestSchedules_CreateExample(t *testing.T) {
	ts := newTestServer(t, "httpapischedcreate")
	s := ts.createSchedule(t, map[string]any{
		"scheduleDate":   "2024-01-01",
		"songs":          []map[string]string{{"songName": "A", "youtubeLink": "u"}},
		"participations": []map[string]any{{"userId": ts.admin.ID, "instrument": "GUITARRA"}},
	})
	if len(s.Songs) != 1 || s.Songs[0].SongName != "A" || s.Songs[0].YoutubeLink != "u" {
		t.Fatalf("songs: %+v", s.Songs)
	}
	if len(s.Participations) != 1 || s.Participations[0].UserID != ts.admin.ID || s.Participations[0].User == nil {
		t.Fatalf("participations: %+v", s.Participations)
	}
	if s.ScheduleDate.Format("2006-01-02") != "2024-01-01" {
		t.Fatalf("date: %v", s.ScheduleDate)
	}
}

func TestSchedules_ParticipationFiltering(t *testing.T) {
	ts := newTestServer(t, "httpapischedfilter")
	s := ts.createSchedule(t, map[string]any{
		"scheduleDate": "2024-02-04T18:00:00Z",
		"participations": []map[string]any{
			{"userId": fmt.Sprint(ts.musician.ID), "instrument": "voz"},
			{"userId": ts.musician.ID, "instrument": "VOZ"},
			{"userId": "abc", "instrument": "BAIXO"},
			{"userId": nil, "instrument": "BATERIA"},
			{"instrument": "TECLADO"},
		},
	})
	if len(s.Participations) != 1 || s.Participations[0].Instrument != "VOZ" {
		t.Fatalf("unusable and duplicate participations should be dropped: %+v", s.Participations)
	}

	rec := ts.do(t, http.MethodPost, "/api/schedules", ts.admin, map[string]any{"scheduleDate": "someday"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/schedules", ts.admin, map[string]any{
		"scheduleDate":   "2024-01-01",
		"participations": []map[string]any{{"userId": 4242, "instrument": "VOZ"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown user: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSchedules_NonAdminCannotMutate(t *testing.T) {
	ts := newTestServer(t, "httpapischedforbidden")
	s := ts.createSchedule(t, map[string]any{"scheduleDate": "2024-01-01", "songs": []map[string]string{{"songName": "A"}}})
	path := fmt.Sprintf("/api/schedules/%d", s.ID)

	calls := []struct{ method, path string }{
		{http.MethodPost, "/api/schedules"},
		{http.MethodPut, path},
		{http.MethodDelete, path},
		{http.MethodDelete, "/api/schedules"},
		{http.MethodPost, path + "/change-requests/1/resolve"},
	}
	for _, c := range calls {
		rec := ts.do(t, c.method, c.path, ts.musician, map[string]any{"scheduleDate": "2030-01-01"})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s as musician: %d", c.method, c.path, rec.Code)
		}
	}
	got := decode[models.Schedule](t, ts.do(t, http.MethodGet, path, ts.musician, nil))
	if got.ScheduleDate.Year() != 2024 || len(got.Songs) != 1 || count(t, ts.orm, &models.Schedule{}) != 1 {
		t.Fatalf("forbidden calls mutated the schedule: %+v", got)
	}
}

func TestSchedules_UpdateReplacesExactly(t *testing.T) {
	ts := newTestServer(t, "httpapischedupdate")
	s := ts.createSchedule(t, map[string]any{
		"scheduleDate":   "2024-01-01",
		"cifras":         "C G",
		"songs":          []map[string]string{{"songName": "A"}, {"songName": "B"}},
		"participations": []map[string]any{{"userId": ts.musician.ID, "instrument": "VOZ"}},
	})
	path := fmt.Sprintf("/api/schedules/%d", s.ID)

	rec := ts.do(t, http.MethodPut, path, ts.admin, map[string]any{
		"scheduleDate": "2024-01-08",
		"songs":        []map[string]string{{"songName": "C", "youtubeLink": "y"}},
		"participations": []map[string]any{
			{"userId": ts.admin.ID, "instrument": "TECLADO"},
			{"userId": ts.musician.ID, "instrument": "BAIXO"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	got := decode[models.Schedule](t, rec)
	if len(got.Songs) != 1 || got.Songs[0].SongName != "C" {
		t.Fatalf("songs after update: %+v", got.Songs)
	}
	pairs := map[string]bool{}
	for _, p := range got.Participations {
		pairs[fmt.Sprintf("%d/%s", p.UserID, p.Instrument)] = true
	}
	want := []string{fmt.Sprintf("%d/TECLADO", ts.admin.ID), fmt.Sprintf("%d/BAIXO", ts.musician.ID)}
	if len(pairs) != 2 || !pairs[want[0]] || !pairs[want[1]] {
		t.Fatalf("participations after update: %v", pairs)
	}
	if got.Cifras == nil || *got.Cifras != "C G" {
		t.Fatalf("cifras omitted from body should be kept: %v", got.Cifras)
	}
	if n := count(t, ts.orm, &models.Song{}); n != 1 {
		t.Fatalf("song rows: %d", n)
	}

	if rec := ts.do(t, http.MethodPut, "/api/schedules/9999", ts.admin, map[string]any{"scheduleDate": "2024-01-01"}); rec.Code != http.StatusNotFound {
		t.Fatalf("update missing: %d", rec.Code)
	}
}

func TestSchedules_ListAndGet(t *testing.T) {
	ts := newTestServer(t, "httpapischedlist")
	older := ts.createSchedule(t, map[string]any{"scheduleDate": "2024-01-01"})
	newer := ts.createSchedule(t, map[string]any{"scheduleDate": "2024-06-01"})

	rec := ts.do(t, http.MethodGet, "/api/schedules", ts.musician, nil)
	list := decode[[]models.Schedule](t, rec)
	if rec.Code != http.StatusOK || len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("list order: %d %+v", rec.Code, list)
	}
	raw := decode[[]map[string]any](t, rec)
	for _, key := range []string{"songs", "participations", "confirmations", "changeRequests", "paletaCores", "cifras"} {
		if _, ok := raw[0][key]; !ok {
			t.Fatalf("schedule JSON lacks %q: %v", key, raw[0])
		}
	}
	if rec := ts.do(t, http.MethodGet, "/api/schedules/9999", ts.musician, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get missing: %d", rec.Code)
	}
}

func TestSchedules_ConfirmAndRemove(t *testing.T) {
	ts := newTestServer(t, "httpapischedconfirm")
	s := ts.createSchedule(t, map[string]any{"scheduleDate": "2024-01-01"})
	path := fmt.Sprintf("/api/schedules/%d/confirm", s.ID)

	for i := 0; i < 2; i++ {
		if rec := ts.do(t, http.MethodPost, path, ts.musician, nil); rec.Code != http.StatusOK {
			t.Fatalf("confirm %d: %d %s", i, rec.Code, rec.Body.String())
		}
	}
	if n := count(t, ts.orm, &models.Confirmation{}); n != 1 {
		t.Fatalf("confirming twice: %d rows", n)
	}
	if rec := ts.do(t, http.MethodPost, "/api/schedules/9999/confirm", ts.musician, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("confirm missing schedule: %d", rec.Code)
	}

	if rec := ts.do(t, http.MethodPost, path, ts.admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin confirm: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, fmt.Sprintf("%s?userId=%d", path, ts.admin.ID), ts.musician, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("musician removing admin's confirmation: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, path+"?userId=abc", ts.musician, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed userId: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, fmt.Sprintf("%s?userId=%d", path, ts.musician.ID), ts.admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin removing musician's confirmation: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, path, ts.musician, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("removing absent confirmation: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodDelete, path, ts.admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin removing own confirmation: %d", rec.Code)
	}
	if n := count(t, ts.orm, &models.Confirmation{}); n != 0 {
		t.Fatalf("confirmations left: %d", n)
	}
}

func TestSchedules_ChangeRequests(t *testing.T) {
	ts := newTestServer(t, "httpapischedchange")
	s := ts.createSchedule(t, map[string]any{"scheduleDate": "2024-01-01"})
	path := fmt.Sprintf("/api/schedules/%d/request-change", s.ID)

	if rec := ts.do(t, http.MethodPost, path, ts.musician, map[string]string{"reason": "   "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank reason: %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, path, ts.musician, map[string]string{"reason": " viagem "}); rec.Code != http.StatusOK {
		t.Fatalf("request change: %d %s", rec.Code, rec.Body.String())
	}
	resolve := fmt.Sprintf("/api/schedules/%d/change-requests/%d/resolve", s.ID, ts.musician.ID)
	if rec := ts.do(t, http.MethodPost, resolve, ts.admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body.String())
	}
	if rec := ts.do(t, http.MethodPost, path, ts.musician, map[string]string{"reason": "doente"}); rec.Code != http.StatusOK {
		t.Fatalf("request change again: %d", rec.Code)
	}
	got := decode[models.Schedule](t, ts.do(t, http.MethodGet, fmt.Sprintf("/api/schedules/%d", s.ID), ts.musician, nil))
	if len(got.ChangeRequests) != 1 || got.ChangeRequests[0].Reason != "doente" || got.ChangeRequests[0].Resolved {
		t.Fatalf("change requests: %+v", got.ChangeRequests)
	}
	if rec := ts.do(t, http.MethodPost, "/api/schedules/9999/request-change", ts.musician, map[string]string{"reason": "x"}); rec.Code != http.StatusNotFound {
		t.Fatalf("missing schedule: %d", rec.Code)
	}
	missing := fmt.Sprintf("/api/schedules/%d/change-requests/%d/resolve", s.ID, ts.admin.ID)
	if rec := ts.do(t, http.MethodPost, missing, ts.admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("resolve missing: %d", rec.Code)
	}
}

func TestSchedules_DeleteAndDeleteAll(t *testing.T) {
	ts := newTestServer(t, "httpapischeddelete")
	s := ts.createSchedule(t, map[string]any{
		"scheduleDate":   "2024-01-01",
		"songs":          []map[string]string{{"songName": "A"}},
		"participations": []map[string]any{{"userId": ts.musician.ID, "instrument": "VOZ"}},
	})
	ts.do(t, http.MethodPost, fmt.Sprintf("/api/schedules/%d/confirm", s.ID), ts.musician, nil)

	path := fmt.Sprintf("/api/schedules/%d", s.ID)
	if rec := ts.do(t, http.MethodDelete, path, ts.admin, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	for _, m := range []any{&models.Song{}, &models.Participation{}, &models.Confirmation{}} {
		if n := count(t, ts.orm, m); n != 0 {
			t.Fatalf("%T left after delete: %d", m, n)
		}
	}
	if rec := ts.do(t, http.MethodDelete, path, ts.admin, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("delete again: %d", rec.Code)
	}

	ts.createSchedule(t, map[string]any{"scheduleDate": "2024-01-01"})
	ts.createSchedule(t, map[string]any{"scheduleDate": "2024-01-08"})
	rec := ts.do(t, http.MethodDelete, "/api/schedules", ts.admin, nil)
	if rec.Code != http.StatusOK || decode[deleteAllResponse](t, rec).Deleted != 2 {
		t.Fatalf("delete all: %d %s", rec.Code, rec.Body.String())
	}
}

func TestScheduleError(t *testing.T) {
	if err := scheduleError("x", repository.ErrNotFound); err.(*apiError).Code != http.StatusNotFound {
		t.Fatalf("not found mapping: %v", err)
	}
	if err := scheduleError("x", fmt.Errorf("wrap: %w", repository.ErrInvalidReference)); err.(*apiError).Code != http.StatusBadRequest {
		t.Fatalf("invalid reference mapping: %v", err)
	}
	if err := scheduleError("x", fmt.Errorf("boom")); err.(*apiError).Code != http.StatusInternalServerError {
		t.Fatalf("fallback mapping: %v", err)
	}
}
