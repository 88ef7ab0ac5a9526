package iso7816

import "strconv"

// insCodeNames maps the ISO instruction codes to their constant names.
var insCodeNames = map[InsCode]string{
	INS_DEACTIVATE_FILE:              "INS_DEACTIVATE_FILE",
	INS_ERASE_RECORD:                 "INS_ERASE_RECORD",
	INS_ERASE_BINARY:                 "INS_ERASE_BINARY",
	INS_ERASE_BINARY_BER:             "INS_ERASE_BINARY_BER",
	INS_PERFORM_SCQL_OPERATION:       "INS_PERFORM_SCQL_OPERATION",
	INS_PERFORM_TRANSACTION_OPER:     "INS_PERFORM_TRANSACTION_OPER",
	INS_PERFORM_USER_OPERATION:       "INS_PERFORM_USER_OPERATION",
	INS_VERIFY:                       "INS_VERIFY",
	INS_VERIFY_BER:                   "INS_VERIFY_BER",
	INS_MANAGE_SECURITY_ENVIRONMENT:  "INS_MANAGE_SECURITY_ENVIRONMENT",
	INS_CHANGE_REFERENCE_DATA:        "INS_CHANGE_REFERENCE_DATA",
	INS_DISABLE_VERIF_REQ:            "INS_DISABLE_VERIF_REQ",
	INS_ENABLE_VERIF_REQ:             "INS_ENABLE_VERIF_REQ",
	INS_PERFORM_SECURITY_OPERATION:   "INS_PERFORM_SECURITY_OPERATION",
	INS_RESET_RETRY_COUNTER:          "INS_RESET_RETRY_COUNTER",
	INS_ACTIVATE_FILE:                "INS_ACTIVATE_FILE",
	INS_GENERATE_ASYMMETRIC_KEY_PAIR: "INS_GENERATE_ASYMMETRIC_KEY_PAIR",
	INS_MANAGE_CHANNEL:               "INS_MANAGE_CHANNEL",
	INS_EXTERNAL_AUTHENTICATE:        "INS_EXTERNAL_AUTHENTICATE",
	INS_GET_CHALLENGE:                "INS_GET_CHALLENGE",
	INS_GENERAL_AUTHENTICATE:         "INS_GENERAL_AUTHENTICATE",
	INS_GENERAL_AUTHENTICATE_BER:     "INS_GENERAL_AUTHENTICATE_BER",
	INS_INTERNAL_AUTHENTICATE:        "INS_INTERNAL_AUTHENTICATE",
	INS_SEARCH_BINARY:                "INS_SEARCH_BINARY",
	INS_SEARCH_BINARY_BER:            "INS_SEARCH_BINARY_BER",
	INS_SEARCH_RECORD:                "INS_SEARCH_RECORD",
	INS_SELECT:                       "INS_SELECT",
	INS_READ_BINARY:                  "INS_READ_BINARY",
	INS_READ_BINARY_BER:              "INS_READ_BINARY_BER",
	INS_READ_RECORD:                  "INS_READ_RECORD",
	INS_READ_RECORD_BER:              "INS_READ_RECORD_BER",
	INS_GET_RESPONSE:                 "INS_GET_RESPONSE",
	INS_ENVELOPE:                     "INS_ENVELOPE",
	INS_ENVELOPE_BER:                 "INS_ENVELOPE_BER",
	INS_GET_DATA:                     "INS_GET_DATA",
	INS_GET_DATA_BER:                 "INS_GET_DATA_BER",
	INS_WRITE_BINARY:                 "INS_WRITE_BINARY",
	INS_WRITE_BINARY_BER:             "INS_WRITE_BINARY_BER",
	INS_WRITE_RECORD:                 "INS_WRITE_RECORD",
	INS_UPDATE_BINARY:                "INS_UPDATE_BINARY",
	INS_UPDATE_BINARY_BER:            "INS_UPDATE_BINARY_BER",
	INS_PUT_DATA:                     "INS_PUT_DATA",
	INS_PUT_DATA_BER:                 "INS_PUT_DATA_BER",
	INS_UPDATE_RECORD:                "INS_UPDATE_RECORD",
	INS_UPDATE_RECORD_BER:            "INS_UPDATE_RECORD_BER",
	INS_CREATE_FILE:                  "INS_CREATE_FILE",
	INS_APPEND_RECORD:                "INS_APPEND_RECORD",
	INS_DELETE_FILE:                  "INS_DELETE_FILE",
	INS_TERMINATE_DF:                 "INS_TERMINATE_DF",
	INS_TERMINATE_EF:                 "INS_TERMINATE_EF",
	INS_TERMINATE_CARD_USAGE:         "INS_TERMINATE_CARD_USAGE",
}

func (v InsCode) String() string {
	if name, ok := insCodeNames[v]; ok {
		return name
	}
	return "InsCode(" + strconv.FormatInt(int64(v), 10) + ")"
}
