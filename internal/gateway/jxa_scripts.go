package gateway

import (
	"fmt"
	"strconv"
	"time"
)

// スクリプトが返す結果文字列
const (
	resultOK                  = "ok"
	resultAuthorizationDenied = "authorization denied"
	resultEventNotFound       = "event not found"
	resultCalendarNotFound    = "calendar not found"
	resultSaveError           = "save error"
)

// 一覧で返す ID と更新・削除での検索は同じ識別子を使う
const (
	eventIDProperty = "eventIdentifier"
	eventLookup     = "eventWithIdentifier"
)

// eventKitPrelude EventKit の読み込みとアクセス許可の確認
//
// 許可を要求した後に状態を再確認し、許可されていなければ false を返す。
const eventKitPrelude = `ObjC.import("EventKit");
function authorize(store) {
  var status = $.EKEventStore.authorizationStatusForEntityType(0);
  if (status != 3) {
    store.requestAccessToEntityTypeCompletion(0, null);
    delay(2);
    status = $.EKEventStore.authorizationStatusForEntityType(0);
  }
  return status == 3;
}
function save(store, event) {
  var error = $();
  var saved = store.saveEventSpanCommitError(event, 0, true, error);
  if (error.js) return "` + resultSaveError + `: " + ObjC.unwrap(error.js.localizedDescription);
  if (!saved) return "` + resultSaveError + `: unknown";
  return "` + resultOK + `";
}
function remove(store, event) {
  var error = $();
  var removed = store.removeEventSpanCommitError(event, 0, true, error);
  if (error.js) return "` + resultSaveError + `: " + ObjC.unwrap(error.js.localizedDescription);
  if (!removed) return "` + resultSaveError + `: unknown";
  return "` + resultOK + `";
}
function findEvent(store, id) {
  var event = store.` + eventLookup + `(id);
  if (!event || event.isNil()) return null;
  return event;
}
`

const listEventsScript = eventKitPrelude + `function run() {
  var store = $.EKEventStore.alloc.init;
  if (!authorize(store)) return "` + resultAuthorizationDenied + `";
  var from = $.NSDate.dateWithTimeIntervalSince1970(%s);
  var to = $.NSDate.dateWithTimeIntervalSince1970(%s);
  var cals = store.calendarsForEntityType(0);
  var names = [];
  for (var i = 0; i < cals.count; i++) {
    names.push(ObjC.unwrap(cals.objectAtIndex(i).title));
  }
  var events = {};
  var found = store.eventsMatchingPredicate(store.predicateForEventsWithStartDateEndDateCalendars(from, to, cals));
  for (var i = 0; i < found.count; i++) {
    var e = found.objectAtIndex(i);
    var cal = ObjC.unwrap(e.calendar.title);
    if (!events[cal]) events[cal] = [];
    events[cal].push({
      id: ObjC.unwrap(e.` + eventIDProperty + `),
      title: ObjC.unwrap(e.title),
      start: ObjC.unwrap(e.startDate).toISOString(),
      end: ObjC.unwrap(e.endDate).toISOString(),
      allDay: e.isAllDay,
      location: e.location ? ObjC.unwrap(e.location) : null,
      notes: e.notes ? ObjC.unwrap(e.notes) : null
    });
  }
  return JSON.stringify({events: events, calendars: names});
}
`

const listCalendarsScript = `function run() {
  var app = Application("Calendar");
  return JSON.stringify(app.calendars().map(function (c) { return c.name(); }));
}
`

const createEventScript = eventKitPrelude + `function run() {
  var store = $.EKEventStore.alloc.init;
  if (!authorize(store)) return "` + resultAuthorizationDenied + `";
  var cals = store.calendarsForEntityType(0);
  var target = null;
  var names = [];
  for (var i = 0; i < cals.count; i++) {
    var cal = cals.objectAtIndex(i);
    var name = ObjC.unwrap(cal.title);
    names.push(name);
    if (target === null && name === "%s") target = cal;
  }
  if (target === null) return "` + resultCalendarNotFound + `. Available: " + names.join(", ");
  var event = $.EKEvent.eventWithEventStore(store);
  event.title = $("%s");
  event.startDate = $.NSDate.dateWithTimeIntervalSince1970(%s);
  event.endDate = $.NSDate.dateWithTimeIntervalSince1970(%s);
  event.calendar = target;
  return save(store, event);
}
`

const updateEventScript = eventKitPrelude + `function run() {
  var store = $.EKEventStore.alloc.init;
  if (!authorize(store)) return "` + resultAuthorizationDenied + `";
  var event = findEvent(store, "%s");
  if (event === null) return "` + resultEventNotFound + `";
  event.title = $("%s");
  event.startDate = $.NSDate.dateWithTimeIntervalSince1970(%s);
  event.endDate = $.NSDate.dateWithTimeIntervalSince1970(%s);
  return save(store, event);
}
`

const deleteEventScript = eventKitPrelude + `function run() {
  var store = $.EKEventStore.alloc.init;
  if (!authorize(store)) return "` + resultAuthorizationDenied + `";
  var event = findEvent(store, "%s");
  if (event === null) return "` + resultEventNotFound + `";
  return remove(store, event);
}
`

// buildListEventsScript from から to までのイベント取得スクリプト
func buildListEventsScript(from, to time.Time) string {
	return fmt.Sprintf(listEventsScript, epochSeconds(from), epochSeconds(to))
}

// buildListCalendarsScript カレンダー名の取得スクリプト
func buildListCalendarsScript() string {
	return listCalendarsScript
}

// buildCreateEventScript イベント作成スクリプト
func buildCreateEventScript(calendarName, title string, start, end time.Time) string {
	return fmt.Sprintf(createEventScript,
		EscapeForScript(calendarName), EscapeForScript(title), epochSeconds(start), epochSeconds(end))
}

// buildUpdateEventScript イベント更新スクリプト
func buildUpdateEventScript(eventID, title string, start, end time.Time) string {
	return fmt.Sprintf(updateEventScript,
		EscapeForScript(eventID), EscapeForScript(title), epochSeconds(start), epochSeconds(end))
}

// buildDeleteEventScript イベント削除スクリプト
func buildDeleteEventScript(eventID string) string {
	return fmt.Sprintf(deleteEventScript, EscapeForScript(eventID))
}

// epochSeconds UNIX 時刻（秒、ミリ秒精度）
func epochSeconds(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMilli())/1000, 'f', 3, 64)
}
