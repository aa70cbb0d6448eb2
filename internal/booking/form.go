package booking

import (
	"encoding/json"
	"fmt"
)

// Selectors for the permit site. XPath where the element has no stable id.
const (
	selLoginEmail      = "#loginEmail"
	selLoginPassword   = "#loginPassword"
	selLoginButton     = `//button[@tabindex="3"]`
	selNewPermitLink   = `//a[text()="New Permit Request"]`
	selSite            = "#site"
	selSiteDescription = "#siteDescription"
	selAddFacilitySet  = "#addFacilitySet"
	selDateInput       = "#event0"
	selDatepicker      = ".ui-datepicker"
	selDatepickerTitle = ".ui-datepicker-title"
	selDatepickerNext  = ".ui-datepicker-next"
	selStartHour       = `select[name="startHour"]`
	selEndHour         = `select[name="endHour"]`
	selAcceptTerms     = "#acceptTerms"
	selConfirmButton   = `//button[text()="Add & Confirm"]`
	selSubmitButton    = `//button[text()="Submit"]`

	conflictText     = "The selected facilities are not available for the above date and time."
	selConflictLabel = `//label[@class="error" and contains(text(), "` + conflictText + `")]`
)

// Auxiliary permit-form fields with their fixed answers. The opaque ids are
// the site's own field identifiers.
var auxInputs = map[string]string{
	"11e79e5d3daf4712b9e6418d2691b976": "Tennis",
	"af8966101be44676b4ee564b052e1e87": "2",
	"f28f0dbea8b5438495778b0bb0ddcd93": "No",
	"d46cb434558845fb9e0318ab6832e427": "No",
	"1221940f5cca4abdb5288cfcbe284820": "No",
	"0ce54956c4b14746ae5d364507da1e85": "No",
	"6b1dda4172f840c7879662bcab1819db": "No",
	"a31f4297075e4dab8c0ef154f2b9b1c1": "0",
	"activity":                         "Tennis",
}

var auxSelects = map[string]string{
	"3754dcef7216446b9cc4bf1cd0f12a2e": "No",
	"06b3f73192a84fd6b88758e56a64c3ad": "No",
}

// byID builds an attribute selector; several site ids start with a digit,
// which a #id CSS selector cannot express.
func byID(id string) string {
	return fmt.Sprintf("[id=%q]", id)
}

// fastSelectCourtScript selects the site, clicks the add-facility control and
// the court checkbox in one injected script. The sub-steps are spaced out with
// timers because the page reacts to the change event asynchronously; the
// promise resolves once the chain has run.
func fastSelectCourtScript(siteID, checkboxID string) string {
	return fmt.Sprintf(`(function(){
	try {
		var siteSelect = document.getElementById(%q);
		if (!siteSelect) return false;
		siteSelect.value = %q;
		siteSelect.dispatchEvent(new Event('change', {bubbles: true}));
		return new Promise(function(resolve){
			setTimeout(function(){
				var addButton = document.getElementById('addFacilitySet');
				if (addButton) addButton.click();
				setTimeout(function(){
					var checkbox = document.getElementById(%q);
					if (checkbox) checkbox.click();
					resolve(true);
				}, 500);
			}, 1000);
		});
	} catch (e) { return false; }
})()`, "site", siteID, checkboxID)
}

// fastDateTimeScript sets the datepicker input and both hour selects directly.
func fastDateTimeScript(dateStr, startHour, endHour string) string {
	return fmt.Sprintf(`(function(){
	function setDate(val) {
		var el = document.getElementById('event0')
			|| document.querySelector('input.hasDatepicker')
			|| document.querySelector("input[id*='event']")
			|| document.querySelector("input[name*='event']");
		if (!el) return false;
		el.value = val;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	}
	function setTime(startVal, endVal) {
		var startSelect = document.getElementsByName('startHour')[0];
		var endSelect = document.getElementsByName('endHour')[0];
		if (!startSelect || !endSelect) return false;
		startSelect.value = startVal;
		startSelect.dispatchEvent(new Event('change', {bubbles: true}));
		endSelect.value = endVal;
		endSelect.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	}
	try { return setDate(%q) && setTime(%q, %q); } catch (e) { return false; }
})()`, dateStr, startHour, endHour)
}

// fastFillDetailsScript fills every auxiliary field and checks the terms box.
func fastFillDetailsScript() string {
	inputs, _ := json.Marshal(auxInputs)
	selects, _ := json.Marshal(auxSelects)
	return fmt.Sprintf(`(function(){
	try {
		var inputs = %s;
		for (var id in inputs) {
			var el = document.getElementById(id);
			if (el) el.value = inputs[id];
		}
		var selects = %s;
		for (var id in selects) {
			var el = document.getElementById(id);
			if (el) el.value = selects[id];
		}
		var terms = document.getElementById('acceptTerms');
		if (terms) terms.checked = true;
		return true;
	} catch (e) { return false; }
})()`, inputs, selects)
}
