/*
Package workers provides the built-in worker capabilities.

Each capability implements ports.Worker and owns all of its side effects:

  - Query (text2sql_agent) translates the instruction into one read-only SQL
    statement and runs it through database/sql (SQLite or PostgreSQL).
  - Chart (chart_generator) turns gathered data into an SVG file and reports
    it through the CHART_PATH/CHART_NOTES marker lines.
  - Caption (chart_summarizer) explains the chart in at most three sentences
    and ends the run.
  - Research (web_researcher) searches the web and digests the results with
    citations.
  - Synthesizer (synthesizer) writes the final prose answer and ends the run.

Capabilities return errors for failed calls; the dispatcher turns them into
"Tool Execution Error" messages so the executor can react.
*/
package workers
